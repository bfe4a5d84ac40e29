package mascot

import "strings"

const (
	defaultClothing = "Luxurious children's clothing."

	// AspectRatio is sent as an output hint with every request.
	AspectRatio = "1:1"
)

var outputRules = []string{
	"Full body",
	"white background",
	"no text or watermarks",
	"high quality",
	"not a caricature",
}

// BuildPrompt assembles the instruction text for one generation. It is pure:
// the same inputs always produce the same string.
func BuildPrompt(style Style, clothingDetails, partyTheme string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Generate a professional full-body child mascot based on the attached photo.\n")
	b.WriteString("GENETIC FIDELITY: The mascot's face MUST be the exact version of the child in the photo.\n")

	b.WriteString("STYLE:\n")
	if block := style.Instructions(); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}

	clothing := strings.TrimSpace(clothingDetails)
	if clothing == "" {
		clothing = defaultClothing
	}
	b.WriteString("DETAILS: " + clothing + "\n")

	if theme := strings.TrimSpace(partyTheme); theme != "" {
		b.WriteString("THEME: Party theme: " + theme + ".\n")
	}

	b.WriteString("RULES: " + strings.Join(outputRules, ", ") + ".")

	return b.String()
}
