package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/store"
	"vastu-check/api/internal/vastu"
)

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// AnalysisStore is the cache and history behind the bot. *store.AnalysisRepo
// satisfies it.
type AnalysisStore interface {
	FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*store.AnalysisRow, error)
	Save(ctx context.Context, row *store.AnalysisRow) error
	ListByChat(ctx context.Context, chatID int64, limit int) ([]store.ChatSummary, error)
}

type Router struct {
	Bot        Bot
	Analyzer   *analyze.Analyzer
	Engines    *ocr.Engines
	EngManager *ocr.Manager
	Repo       AnalysisStore // optional
	CacheTTL   time.Duration
	Timeout    time.Duration

	state chatState
}

const helpText = "Send a floor plan as a photo or an image file and I will check every labelled room against the Vastu placement rules.\n" +
	"Commands: /rules, /engine, /history, /health"

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}
	if fileID, ok := imageFileID(msg); ok {
		r.acceptImage(ctx, msg.Chat.ID, fileID)
		return
	}
	if msg.Document != nil {
		r.send(msg.Chat.ID, "That file is not an image. Send the plan as PNG or JPEG.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "rules":
		r.sendMarkdown(cid, rulesText(r.Analyzer.Catalog()))
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "history":
		r.handleHistory(ctx, cid)
	default:
		r.send(cid, "Unknown command. "+helpText)
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine
//	/engine gemini [model]
func (r *Router) handleEngineCommand(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		cur := r.EngManager.Get(chatID)
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine {%s} [model]",
			cur.Name(), cur.GetModel(), strings.Join(r.Engines.Names(), "|")))
		m.ReplyMarkup = makeEngineKeyboard(r.Engines.Names())
		r.sendMsg(m)
		return
	}
	var model string
	if len(fields) > 1 {
		model = fields[1]
	}
	if err := r.setEngine(chatID, fields[0], model); err != nil {
		r.SendError(chatID, err)
	}
}

func (r *Router) setEngine(chatID int64, name, model string) error {
	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		return err
	}
	eng = ocr.WithModel(eng, model)
	r.EngManager.Set(chatID, eng)
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
	return nil
}

func (r *Router) handleHistory(ctx context.Context, chatID int64) {
	if r.Repo == nil {
		r.send(chatID, "History is not stored on this bot.")
		return
	}
	list, err := r.Repo.ListByChat(ctx, chatID, 10)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.sendMarkdown(chatID, historyText(list))
}

func (r *Router) send(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMarkdown(chatID int64, text string) {
	if len(text) > 3900 {
		text = text[:3900] + "…"
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	r.sendMsg(m)
}

func (r *Router) sendMsg(c tgbotapi.Chattable) {
	if _, err := r.Bot.Send(c); err != nil {
		log.Printf("telegram send: %v", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("⚠️ %v", err))
}

func rulesText(c *vastu.Catalog) string {
	var b strings.Builder
	b.WriteString("*Vastu placement rules*\n")
	for _, rule := range c.Rules() {
		fmt.Fprintf(&b, "• %s: %s\n", esc(vastu.TitleCase(rule.Label)), rule.ZoneList())
	}
	return b.String()
}
