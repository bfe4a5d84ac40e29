package gemini

import (
	"regexp"
	"strings"
)

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+)(;[^,]*)?,`)

// ParseDataURL splits "data:<mime>;base64,<payload>" into an ImageInput.
// A bare base64 string is accepted with fallbackMime.
func ParseDataURL(dataURL string, fallbackMime string) (ImageInput, bool) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return ImageInput{}, false
	}

	mime := fallbackMime
	if matches := dataURLRegex.FindStringSubmatch(dataURL); len(matches) >= 2 {
		mime = strings.TrimSpace(matches[1])
	}

	data := StripDataURLPrefix(dataURL)
	if data == "" {
		return ImageInput{}, false
	}

	return ImageInput{DataBase64: data, MimeType: mime}, true
}

func StripDataURLPrefix(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return ""
}

func ToDataURL(mimeType, base64Data string) string {
	return "data:" + mimeType + ";base64," + base64Data
}
