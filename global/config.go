package global

import (
	"encoding/json"
	"os"
	"time"

	"IMClient/logger"
	"IMClient/tools/decode"
	"IMClient/tools/errs"
	"IMClient/tools/ids"
)

// AppConfig holds the client-side settings. Durations are given in
// milliseconds in config files.
type AppConfig struct {
	ServerURL       string `json:"server_url"` // ws(s)://host/ws
	Token           string `json:"token"`
	SendID          string `json:"send_id"`
	NodeID          int64  `json:"node_id"`
	SendRetry       int    `json:"send_retry"`         // bounded send attempts
	SendRetryWaitMS int64  `json:"send_retry_wait_ms"` // backoff between attempts
	PullCount       int64  `json:"pull_count"`         // page size for load-more
	WriteTimeoutMS  int64  `json:"write_timeout_ms"`
}

var Global = AppConfig{
	ServerURL:       "ws://127.0.0.1:8080/ws",
	NodeID:          100,
	SendRetry:       3,
	SendRetryWaitMS: 1000,
	PullCount:       20,
	WriteTimeoutMS:  10000,
}

func (c *AppConfig) SendRetryWait() time.Duration {
	return time.Duration(c.SendRetryWaitMS) * time.Millisecond
}

func (c *AppConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// ConfigIds seeds the snowflake generator node id.
func ConfigIds() {
	logger.Infof("configure id generator node=%d", Global.NodeID)
	ids.SetNodeID(Global.NodeID)
}

// LoadFile overlays settings from a JSON config file onto the defaults.
func LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errs.WrapMsg(err, "read config", "path", path)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errs.WrapMsg(err, "parse config", "path", path)
	}
	cfg, err := decode.DecodeMap[AppConfig](m)
	if err != nil {
		return errs.WrapMsg(err, "decode config", "path", path)
	}
	merge(&Global, cfg)
	return nil
}

func merge(dst, src *AppConfig) {
	if src.ServerURL != "" {
		dst.ServerURL = src.ServerURL
	}
	if src.Token != "" {
		dst.Token = src.Token
	}
	if src.SendID != "" {
		dst.SendID = src.SendID
	}
	if src.NodeID != 0 {
		dst.NodeID = src.NodeID
	}
	if src.SendRetry != 0 {
		dst.SendRetry = src.SendRetry
	}
	if src.SendRetryWaitMS != 0 {
		dst.SendRetryWaitMS = src.SendRetryWaitMS
	}
	if src.PullCount != 0 {
		dst.PullCount = src.PullCount
	}
	if src.WriteTimeoutMS != 0 {
		dst.WriteTimeoutMS = src.WriteTimeoutMS
	}
}

// GetJwtSecret returns the shared dev secret used by the local gateway.
func GetJwtSecret() []byte {
	if s := os.Getenv("IM_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
}
