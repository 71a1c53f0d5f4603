package telegram

import (
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const enginePrefix = "engine:"

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	answer := ""
	switch {
	case strings.HasPrefix(cb.Data, enginePrefix):
		name := strings.TrimPrefix(cb.Data, enginePrefix)
		if err := r.setEngine(cid, name, ""); err != nil {
			answer = err.Error()
		} else {
			answer = "Engine: " + name
		}
	default:
		answer = "Unknown action"
	}
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, answer)); err != nil {
		log.Printf("telegram callback answer: %v", err)
	}
}
