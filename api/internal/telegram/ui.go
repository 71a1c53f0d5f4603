package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vastu-check/api/internal/store"
	"vastu-check/api/internal/vastu"
)

// One button per configured engine.
func makeEngineKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(names))
	for _, n := range names {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(n, enginePrefix+n))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// light escaping for legacy Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

var statusIcon = map[vastu.Status]string{
	vastu.StatusVerified:    "✅",
	vastu.StatusNotVerified: "❌",
	vastu.StatusUnknown:     "❔",
}

func summaryLine(s vastu.Summary) string {
	return fmt.Sprintf("%d rooms analyzed: %d verified, %d not verified",
		s.TotalRoomsAnalyzed, s.VerifiedPlacements, s.NotVerifiedPlacements)
}

func reportText(rep vastu.Report, engine string, cached bool) string {
	var b strings.Builder
	b.WriteString("*Vastu compliance*\n")
	b.WriteString(esc(summaryLine(rep.Summary)))
	b.WriteString("\n\n")
	for _, d := range rep.Details {
		fmt.Fprintf(&b, "%s *%s* (%s): %s\n", statusIcon[d.Status], esc(d.RoomName), d.DetectedLocation, esc(d.Message))
	}
	src := "engine " + engine
	if cached {
		src += ", cached"
	}
	fmt.Fprintf(&b, "\n_%s_", esc(src))
	return b.String()
}

func historyText(list []store.ChatSummary) string {
	if len(list) == 0 {
		return "No analyses yet. Send a floor plan to start."
	}
	var b strings.Builder
	b.WriteString("*Recent analyses*\n")
	for _, s := range list {
		fmt.Fprintf(&b, "• %s, %s: %s\n", s.CreatedAt.UTC().Format("2006-01-02 15:04"), esc(s.Engine), esc(summaryLine(s.Summary)))
	}
	return b.String()
}
