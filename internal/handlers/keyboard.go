package handlers

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mascot-factory/internal/mascot"
)

const callbackPrefix = "ms"

func cb(parts ...string) string {
	return callbackPrefix + ":" + strings.Join(parts, ":")
}

// parseCallback splits "ms:<action>[:<arg>]". Foreign payloads report false.
func parseCallback(data string) (action, arg string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(data), callbackPrefix+":")
	if !found || rest == "" {
		return "", "", false
	}
	action, arg, _ = strings.Cut(rest, ":")
	return action, arg, true
}

func styleKeyboard(current mascot.Style) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, s := range mascot.Styles() {
		label := s.Label
		if s.Label == string(current) {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb("style", s.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb("generate")),
		tgbotapi.NewInlineKeyboardButtonData("Reset", cb("reset")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
