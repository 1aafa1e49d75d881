package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"IMClient/global"
	"IMClient/logger"
	"IMClient/module/chat/model"
	"IMClient/service/syncstore"
	"IMClient/service/transport"
	"IMClient/tools/security"
)

func main() {
	cfgPath := flag.String("config", "", "path to JSON config file")
	user := flag.String("user", "", "own user id")
	peer := flag.String("peer", "", "counterparty user id")
	flag.Parse()

	if *cfgPath != "" {
		if err := global.LoadFile(*cfgPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if *user != "" {
		global.Global.SendID = *user
	}
	if global.Global.SendID == "" || *peer == "" {
		log.Fatal("need -user and -peer (or send_id in the config file)")
	}
	global.ConfigIds()

	token := global.Global.Token
	if token == "" {
		// no token supplied, mint one against the local dev gateway secret
		t, _, err := security.Generate(security.DefaultOptions(global.GetJwtSecret()), global.Global.SendID)
		if err != nil {
			log.Fatalf("mint dev token: %v", err)
		}
		token = t
	}

	url, err := transport.BuildURL(global.Global.ServerURL, token, global.Global.SendID)
	if err != nil {
		log.Fatalf("build url: %v", err)
	}
	tr, err := transport.Dial(transport.Options{
		URL:           url,
		SendRetry:     global.Global.SendRetry,
		SendRetryWait: global.Global.SendRetryWait(),
		WriteTimeout:  global.Global.WriteTimeout(),
	})
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	store := syncstore.New(tr, syncstore.Options{
		UserID:    global.Global.SendID,
		PullCount: global.Global.PullCount,
	})
	store.SetOnNewMessage(func(msg *model.Message) {
		fmt.Printf("\r[%s] %s: %s\n> ", msg.ConversationID, msg.SenderID, msg.Content)
	})
	store.Attach()
	defer store.Detach()

	convID := model.GetConversationID(model.SingleChatType, global.Global.SendID, *peer)
	fmt.Printf("chatting with %s in %s\n", *peer, convID)
	fmt.Println(`type a message and press enter; "/more" loads older history, "/quit" exits`)

	in := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
		case line == "/quit":
			return
		case line == "/more":
			if store.Loading(convID) {
				fmt.Println("still loading")
				break
			}
			if err := store.LoadMore(convID, 0); err != nil {
				logger.Warnf("load more: %v", err)
			}
		default:
			clientMsgID, err := store.Send(&model.SendMessageReq{
				ConvType: model.SingleChatType,
				TargetID: *peer,
				MsgType:  model.MsgTypeText,
				Content:  line,
			}, convID)
			if err != nil {
				store.MarkFailed(convID, clientMsgID)
				logger.Warnf("send failed, kept for resend: %v", err)
			}
		}
		fmt.Print("> ")
	}
}
