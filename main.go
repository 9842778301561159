package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Wetty/pkg/core"
	"Wetty/pkg/logging"
)

// main runs the engine headless: it opens a conversation, tails live
// deliveries, and optionally sends a message. Mostly useful for poking at a
// backend without a frontend attached.
func main() {
	chatID := flag.String("chat", "", "conversation to open and tail")
	send := flag.String("send", "", "message text to send to -chat")
	flag.Parse()

	log := logging.GetLogger("main")

	app := NewApp()
	if err := app.Startup(); err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx := context.Background()

	if *chatID == "" {
		chats, err := app.Chats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("listing chats failed")
			os.Exit(1)
		}
		for _, chat := range chats {
			name := "(unnamed)"
			if chat.Name != nil {
				name = *chat.Name
			}
			fmt.Printf("%d\t%s\n", chat.ID, name)
		}
		return
	}

	if err := app.OpenChat(ctx, *chatID); err != nil {
		log.Error().Err(err).Str("chat", *chatID).Msg("open failed")
		os.Exit(1)
	}
	for _, msg := range app.Messages(*chatID) {
		printMessage(msg.SenderUID, msg.Message)
	}

	if *send != "" {
		if _, err := app.SendMessage(ctx, *chatID, *send); err != nil {
			log.Error().Err(err).Msg("send failed")
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case ev := <-app.Events():
			switch e := ev.(type) {
			case core.MessageEvent:
				if e.Message.ChatID == *chatID {
					printMessage(e.Message.SenderUID, e.Message.Message)
				}
			case core.ConnectionEvent:
				log.Info().Bool("connected", e.Connected).Msg("push channel")
			}
		case <-sigs:
			return
		}
	}
}

func printMessage(sender int, body *string) {
	text := "(deleted)"
	if body != nil {
		text = *body
	}
	fmt.Printf("[%d] %s\n", sender, text)
}
