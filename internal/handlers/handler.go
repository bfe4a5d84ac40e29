package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mascot-factory/internal/album"
	"mascot-factory/internal/mascot"
	"mascot-factory/internal/workshop"
)

// Messenger is the part of telegram.Client the bot talks through.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	SendTyping(chatID int64)
	AnswerCallback(callbackID, text string, alert bool) error
	DownloadPhoto(ctx context.Context, fileID string) (string, error)
}

type Options struct {
	Telegram  Messenger
	Workshop  *workshop.Store
	Generator workshop.Generator
	// Allowed may use the workshop. Operators are always allowed and also
	// see provider details in failure messages.
	Allowed   []int64
	Operators []int64
	Logger    *slog.Logger
}

type Handler struct {
	tg        Messenger
	workshop  *workshop.Store
	gen       workshop.Generator
	allowed   map[int64]struct{}
	operators map[int64]struct{}
	logger    *slog.Logger
	albums    *album.Collector
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ops := make(map[int64]struct{}, len(opts.Operators))
	allowed := make(map[int64]struct{}, len(opts.Allowed)+len(opts.Operators))
	for _, id := range opts.Operators {
		ops[id] = struct{}{}
		allowed[id] = struct{}{}
	}
	for _, id := range opts.Allowed {
		allowed[id] = struct{}{}
	}

	return &Handler{
		tg:        opts.Telegram,
		workshop:  opts.Workshop,
		gen:       opts.Generator,
		allowed:   allowed,
		operators: ops,
		logger:    logger,
	}
}

func (h *Handler) SetAlbumCollector(c *album.Collector) {
	h.albums = c
}

func workshopKey(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (h *Handler) isAllowed(userID int64) bool {
	_, ok := h.allowed[userID]
	return ok
}

func deniedText(userID int64) string {
	return fmt.Sprintf("This bot is private. Ask an operator to add your Telegram ID %d.", userID)
}

func (h *Handler) role(userID int64) mascot.Role {
	if _, ok := h.operators[userID]; ok {
		return mascot.RoleOperator
	}
	return mascot.RoleUser
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	if !h.isAllowed(msg.From.ID) {
		switch msg.Command() {
		case "start", "help":
			return h.tg.SendText(msg.Chat.ID, helpText+"\n\n"+deniedText(msg.From.ID))
		}
		if msg.IsCommand() || len(msg.Photo) > 0 {
			h.logger.Info("refused telegram user", "user_id", msg.From.ID)
			return h.tg.SendText(msg.Chat.ID, deniedText(msg.From.ID))
		}
		return nil
	}

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		return h.handlePhoto(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		return h.tg.SendText(msg.Chat.ID, "Send a photo of the child, pick a style with /styles, then /generate. See /help.")
	}
	return nil
}

// HandleAlbum stores the first photo of an album. The mascot is built from
// a single portrait.
func (h *Handler) HandleAlbum(ctx context.Context, g album.Group) {
	if len(g.FileIDs) == 0 || !h.isAllowed(g.UserID) {
		return
	}
	if err := h.storePhoto(ctx, g.ChatID, g.UserID, g.FileIDs[0], g.Caption); err != nil {
		h.logger.Error("album photo failed", "chat_id", g.ChatID, "err", err)
		return
	}
	if len(g.FileIDs) > 1 {
		_ = h.tg.SendText(g.ChatID, fmt.Sprintf("I received %d photos and kept the first one.", len(g.FileIDs)))
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	key := workshopKey(userID)

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "styles":
		return h.sendStyles(chatID, h.workshop.Get(key))
	case "clothing":
		return h.setText(chatID, key, msg.CommandArguments(), func(st *workshop.State, v string) { st.ClothingDetails = v }, "Clothing details")
	case "theme":
		return h.setText(chatID, key, msg.CommandArguments(), func(st *workshop.State, v string) { st.PartyTheme = v }, "Party theme")
	case "generate":
		return h.generate(ctx, chatID, userID)
	case "reset":
		h.workshop.Reset(key)
		return h.tg.SendText(chatID, "Everything was cleared. Send a new photo to start again.")
	default:
		return h.tg.SendText(chatID, "Unknown command. Use /help.")
	}
}

func (h *Handler) setText(chatID int64, key, value string, set func(*workshop.State, string), label string) error {
	value = strings.TrimSpace(value)
	if _, err := h.workshop.Update(key, func(st *workshop.State) { set(st, value) }); err != nil {
		return h.tg.SendText(chatID, busyText)
	}
	if value == "" {
		return h.tg.SendText(chatID, label+" cleared.")
	}
	return h.tg.SendText(chatID, label+" saved: "+value)
}

func (h *Handler) handlePhoto(ctx context.Context, msg *tgbotapi.Message) error {
	// the last size is the largest
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.albums != nil {
		accepted := h.albums.Add(album.Photo{
			ChatID:  msg.Chat.ID,
			UserID:  msg.From.ID,
			AlbumID: msg.MediaGroupID,
			Caption: msg.Caption,
			FileID:  fileID,
		})
		if accepted {
			return nil
		}
	}

	return h.storePhoto(ctx, msg.Chat.ID, msg.From.ID, fileID, msg.Caption)
}

// storePhoto downloads fileID into the user's workshop. A caption is taken
// as clothing details.
func (h *Handler) storePhoto(ctx context.Context, chatID, userID int64, fileID, caption string) error {
	dataURL, err := h.tg.DownloadPhoto(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "Could not download the photo. Please send it again.")
	}

	caption = strings.TrimSpace(caption)
	st, err := h.workshop.Update(workshopKey(userID), func(st *workshop.State) {
		st.Photo = dataURL
		if caption != "" {
			st.ClothingDetails = caption
		}
	})
	if errors.Is(err, workshop.ErrBusy) {
		return h.tg.SendText(chatID, busyText)
	}

	if !st.Style.Valid() {
		_, err := h.tg.SendTextWithKeyboard(chatID, "Photo saved. Now choose a style:", styleKeyboard(st.Style))
		return err
	}
	return h.tg.SendText(chatID, fmt.Sprintf("Photo saved. Style: %s. Send /generate when ready.", st.Style))
}

func (h *Handler) sendStyles(chatID int64, st workshop.State) error {
	var b strings.Builder
	b.WriteString("Choose a style:\n")
	for _, s := range mascot.Styles() {
		b.WriteString("\n• " + s.Label + ": " + s.Description)
	}
	_, err := h.tg.SendTextWithKeyboard(chatID, b.String(), styleKeyboard(st.Style))
	return err
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.From == nil {
		return nil
	}
	action, arg, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if !h.isAllowed(q.From.ID) {
		return h.tg.AnswerCallback(q.ID, deniedText(q.From.ID), true)
	}

	chatID := q.Message.Chat.ID
	key := workshopKey(q.From.ID)

	switch action {
	case "style":
		style, ok := mascot.ParseStyle(arg)
		if !ok {
			return h.tg.AnswerCallback(q.ID, "Unknown style.", true)
		}
		if _, err := h.workshop.Update(key, func(st *workshop.State) { st.Style = style }); err != nil {
			return h.tg.AnswerCallback(q.ID, busyText, true)
		}
		_ = h.tg.AnswerCallback(q.ID, string(style), false)
		return h.tg.SendText(chatID, fmt.Sprintf("Style set to %s.", style))
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, q.From.ID)
	case "reset":
		h.workshop.Reset(key)
		_ = h.tg.AnswerCallback(q.ID, "Cleared", false)
		return h.tg.SendText(chatID, "Everything was cleared. Send a new photo to start again.")
	}
	return h.tg.AnswerCallback(q.ID, "", false)
}

func (h *Handler) generate(ctx context.Context, chatID, userID int64) error {
	if !h.isAllowed(userID) {
		return h.tg.SendText(chatID, deniedText(userID))
	}
	key := workshopKey(userID)

	// starting the attempt before replying keeps a double tap from
	// producing two provider calls
	ticket, err := h.workshop.Begin(key)
	switch {
	case errors.Is(err, workshop.ErrBusy):
		return h.tg.SendText(chatID, busyText)
	case errors.Is(err, mascot.ErrMissingPhoto):
		return h.tg.SendText(chatID, "Send a photo of the child first.")
	case errors.Is(err, mascot.ErrInvalidStyle):
		_, err := h.tg.SendTextWithKeyboard(chatID, "Choose a style first:", styleKeyboard(""))
		return err
	case err != nil:
		return err
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("Creating your %s mascot, this can take a minute…", ticket.Style))

	result, genErr := h.gen.RequestGeneration(ctx, ticket.Photo, ticket.Style, ticket.ClothingDetails, ticket.PartyTheme)
	st, current := h.workshop.Finish(ticket, result, genErr)
	if !current {
		h.logger.Info("discarding result after reset", "chat_id", chatID)
		return nil
	}

	if st.Phase == workshop.PhaseFailed {
		return h.tg.SendText(chatID, "❌ "+mascot.MessageFor(st.Err, h.role(userID)))
	}
	return h.tg.SendPhotoDataURL(chatID, st.Result, fmt.Sprintf("✅ Your mascot in %s style. Send /generate to try again or /reset to start over.", st.Style))
}

const busyText = "A mascot is already being generated. Please wait for it to finish."

const helpText = "Mascot Factory turns a child's photo into a party mascot.\n\n" +
	"1. Send a clear photo of the child (a caption is used as clothing details).\n" +
	"2. /styles to pick Mini Realista, Magia 3D, Cartoon Pop or Pintura Doce.\n" +
	"3. Optional: /clothing <details> and /theme <party theme>.\n" +
	"4. /generate to create the mascot.\n\n" +
	"/reset clears everything."
