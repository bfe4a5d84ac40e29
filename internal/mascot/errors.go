package mascot

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mascot-factory/internal/gemini"
)

const BillingConsoleURL = "https://aistudio.google.com/app/billing"

var (
	ErrMissingPhoto = errors.New("a photo is required")
	ErrInvalidStyle = errors.New("a valid style is required")
)

type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindQuota             Kind = "quota"
	KindPermission        Kind = "permission"
	KindEmptyResult       Kind = "empty_result"
	KindProvider          Kind = "provider"
)

// Role selects how much provider detail a failure message reveals.
type Role int

const (
	RoleUser Role = iota
	RoleOperator
)

// Error is a classified generation failure. Kind does not depend on who
// is asking; only Message does.
type Error struct {
	Kind            Kind
	ProviderMessage string
	Err             error
}

func (e *Error) Error() string {
	if e.ProviderMessage != "" {
		return fmt.Sprintf("mascot %s: %s", e.Kind, e.ProviderMessage)
	}
	return "mascot " + string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Message(role Role) string {
	switch e.Kind {
	case KindMissingCredential:
		return "No image API key is configured. Set GEMINI_API_KEY and try again."
	case KindQuota:
		if role == RoleOperator {
			msg := "Provider quota exhausted"
			if e.ProviderMessage != "" {
				msg += ": " + e.ProviderMessage
			}
			return msg + ". Enable a paid billing tier at " + BillingConsoleURL
		}
		return "The system is under high demand right now. Please try again in a few minutes."
	case KindPermission:
		return "The image provider refused the request. Check the API key and its billing settings."
	case KindEmptyResult:
		return "No image was produced. Please retry with a clearer photo."
	default:
		if e.ProviderMessage != "" {
			return e.ProviderMessage
		}
		return "Failed to generate the mascot."
	}
}

// MessageFor renders any error returned by RequestGeneration for the given
// role. Precondition errors are shown as-is.
func MessageFor(err error, role Role) string {
	if err == nil {
		return ""
	}
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Message(role)
	}
	return err.Error()
}

// KindOf returns "" for errors that were not classified.
func KindOf(err error) Kind {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Kind
	}
	return ""
}

func classify(err error) *Error {
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return &Error{Kind: KindMissingCredential, Err: err}
	}

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForAPIError(apiErr), ProviderMessage: apiErr.Message, Err: err}
	}

	msg := err.Error()
	kind := KindProvider
	if mentionsQuota(msg) {
		kind = KindQuota
	}
	return &Error{Kind: kind, ProviderMessage: msg, Err: err}
}

func kindForAPIError(e *gemini.APIError) Kind {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.Status == "RESOURCE_EXHAUSTED":
		return KindQuota
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden,
		e.Status == "PERMISSION_DENIED", e.Status == "UNAUTHENTICATED":
		return KindPermission
	case strings.Contains(strings.ToLower(e.Message), "api key not valid"):
		return KindPermission
	case mentionsQuota(e.Message):
		return KindQuota
	}
	return KindProvider
}

func mentionsQuota(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "429")
}
