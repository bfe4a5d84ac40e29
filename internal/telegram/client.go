package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mascot-factory/internal/gemini"
)

const (
	maxTextBytes    = 4096
	maxCaptionBytes = 1024
	maxPhotoBytes   = 20 << 20
)

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
}

type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{bot: bot, httpClient: opts.HTTPClient, logger: logger}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

func (c *Client) Updates(timeout time.Duration) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	if timeout > 0 {
		u.Timeout = int(timeout.Seconds())
	}
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto))
}

// SendText splits text over several messages when it exceeds the message limit.
func (c *Client) SendText(chatID int64, text string) error {
	for _, chunk := range SplitUTF8(text, maxTextBytes) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, TruncateUTF8(text, maxTextBytes))
	msg.ReplyMarkup = kb
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := c.bot.Request(cb)
	return err
}

// SendPhotoDataURL uploads a generated mascot given as a data URL.
func (c *Client) SendPhotoDataURL(chatID int64, dataURL string, caption string) error {
	img, ok := gemini.ParseDataURL(dataURL, "image/png")
	if !ok {
		return errors.New("empty image data url")
	}

	raw, err := base64.StdEncoding.DecodeString(img.DataBase64)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}

	name := "mascot.png"
	if exts, _ := mime.ExtensionsByType(img.MimeType); len(exts) > 0 {
		name = "mascot" + exts[0]
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: raw})
	if caption != "" {
		photo.Caption = TruncateUTF8(caption, maxCaptionBytes)
	}

	_, err = c.bot.Send(photo)
	return err
}

// DownloadPhoto fetches a Telegram file and returns it as a data URL ready
// for the workshop.
func (c *Client) DownloadPhoto(ctx context.Context, fileID string) (string, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", redactURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("telegram file download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	raw, err := readLimited(resp.Body, maxPhotoBytes)
	if err != nil {
		return "", err
	}

	return gemini.ToDataURL(PhotoMime(resp.Header.Get("content-type"), raw), base64.StdEncoding.EncodeToString(raw)), nil
}

var ErrPhotoTooLarge = errors.New("telegram photo is too large")

// readLimited reads up to limit bytes and fails instead of returning a
// truncated image.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, redactURL(err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrPhotoTooLarge, limit)
	}
	return raw, nil
}

// redactURL drops the request URL from transport errors. File URLs carry
// the bot token.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("telegram file download: %s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// PhotoMime trusts the declared content type unless it is missing or
// generic, then sniffs the bytes. Anything that is not an image is sent as
// JPEG, which is what Telegram stores photos as.
func PhotoMime(declared string, raw []byte) string {
	mimeType := mediaType(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mediaType(http.DetectContentType(raw))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/jpeg"
	}
	return mimeType
}

func mediaType(v string) string {
	v, _, _ = strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(v))
}

// SplitUTF8 cuts text into chunks of at most maxBytes without breaking a rune.
func SplitUTF8(text string, maxBytes int) []string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []string{text}
	}

	var out []string
	start, last := 0, 0
	for i := range text {
		if i-start > maxBytes {
			out = append(out, text[start:last])
			start = last
		}
		last = i
	}
	if len(text)-start > maxBytes {
		out = append(out, text[start:last])
		start = last
	}
	return append(out, text[start:])
}

func TruncateUTF8(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	cut := 0
	for i := range text {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return text[:cut]
}
