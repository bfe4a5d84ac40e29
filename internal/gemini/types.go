package gemini

import (
	"fmt"
	"strings"
)

// ImageInput is a base64 payload without any data-URL header.
type ImageInput struct {
	DataBase64 string
	MimeType   string
}

type ImageRequest struct {
	Image       ImageInput
	Prompt      string
	AspectRatio string
}

type OutcomeKind int

const (
	OutcomeNoImage OutcomeKind = iota
	OutcomeImage
)

func (k OutcomeKind) String() string {
	if k == OutcomeImage {
		return "image"
	}
	return "no_image"
}

// Outcome is the provider reply, decoded once. Image is set only when Kind
// is OutcomeImage and holds the first image-bearing part.
type Outcome struct {
	Kind  OutcomeKind
	Image ImageInput
	Text  string
}

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode int
	// Status is the RPC status from the error envelope, e.g. RESOURCE_EXHAUSTED.
	Status  string
	Message string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("gemini API %d", e.StatusCode))
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}
