package gateway

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramGateway bridges Telegram chats to the assistant. Each chat id
// maps to its own assistant session, so dialogues in different chats
// never share slot-filling state.
type TelegramGateway struct {
	Bot       *tgbotapi.BotAPI
	Responder Responder
}

func NewTelegramGateway(token string, responder Responder) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:       bot,
		Responder: responder,
	}, nil
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

			chatID := fmt.Sprintf("%d", update.Message.Chat.ID)
			response := tg.Responder.HandleTurn(ctx, chatID, update.Message.Text)
			if response == "" {
				continue
			}

			msg := tgbotapi.NewMessage(update.Message.Chat.ID, response)
			if _, err := tg.Bot.Send(msg); err != nil {
				log.Printf("Error sending to chat %s: %v", chatID, err)
			}
		}
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
