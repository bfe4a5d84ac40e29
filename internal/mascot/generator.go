package mascot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"mascot-factory/internal/gemini"
	"mascot-factory/internal/metrics"
)

const fallbackPhotoMime = "image/jpeg"

// ImageProvider is the slice of gemini.Client the generator uses.
type ImageProvider interface {
	HasAPIKey() bool
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Outcome, error)
}

type GeneratorOptions struct {
	Provider ImageProvider
	Logger   *slog.Logger
}

// Generator turns one user request into one provider call. It holds no
// per-request state; callers serialize requests per user.
type Generator struct {
	provider ImageProvider
	logger   *slog.Logger
}

func NewGenerator(opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{provider: opts.Provider, logger: logger}
}

// RequestGeneration returns a data:image/png;base64 URL on success. Failures
// are ErrMissingPhoto, ErrInvalidStyle, or a *Error.
func (g *Generator) RequestGeneration(ctx context.Context, photoDataURL string, style Style, clothingDetails, partyTheme string) (string, error) {
	if g.provider == nil || !g.provider.HasAPIKey() {
		g.record(style, KindMissingCredential, 0)
		return "", &Error{Kind: KindMissingCredential, Err: gemini.ErrMissingAPIKey}
	}

	photo, ok := gemini.ParseDataURL(photoDataURL, fallbackPhotoMime)
	if !ok {
		return "", ErrMissingPhoto
	}
	if !style.Valid() {
		return "", ErrInvalidStyle
	}

	prompt := BuildPrompt(style, clothingDetails, partyTheme)

	metrics.ActiveGenerations.Inc()
	start := time.Now()
	out, err := g.provider.GenerateImage(ctx, gemini.ImageRequest{
		Image:       photo,
		Prompt:      prompt,
		AspectRatio: AspectRatio,
	})
	elapsed := time.Since(start)
	metrics.ActiveGenerations.Dec()

	if err != nil {
		mErr := classify(err)
		g.record(style, mErr.Kind, elapsed)
		g.logger.Error("mascot generation failed", "style", style.Key(), "kind", mErr.Kind, "err", err)
		return "", mErr
	}

	if out.Kind != gemini.OutcomeImage {
		g.record(style, KindEmptyResult, elapsed)
		g.logger.Warn("provider returned no image", "style", style.Key(), "text", truncate(out.Text, 200))
		return "", &Error{Kind: KindEmptyResult}
	}

	g.record(style, "", elapsed)
	g.logger.Info("mascot generated", "style", style.Key(), "dur_ms", elapsed.Milliseconds())
	return gemini.ToDataURL("image/png", out.Image.DataBase64), nil
}

func (g *Generator) record(style Style, kind Kind, elapsed time.Duration) {
	outcome := "ok"
	if kind != "" {
		outcome = string(kind)
	}
	label := style.Key()
	if label == "" {
		label = "unknown"
	}
	metrics.GenerationTotal.WithLabelValues(label, outcome).Inc()
	if elapsed > 0 {
		metrics.GenerationDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

// truncate keeps at most max runes of s.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
