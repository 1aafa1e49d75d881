package main

import (
	"log"
	"os"

	"IMClient/global"
	"IMClient/logger"
	"IMClient/service/gateway"
)

func main() {
	global.ConfigIds()

	addr := os.Getenv("IM_GATEWAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	s := gateway.NewServer(global.GetJwtSecret())
	r := s.Router()

	logger.Infof("[gateway] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("gateway failed: %v", err)
	}
}
