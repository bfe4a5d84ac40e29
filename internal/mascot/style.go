package mascot

import "strings"

// Style is one of the four rendering presets. The value is the display label.
type Style string

const (
	StyleMiniRealista Style = "Mini Realista"
	StyleMagia3D      Style = "Magia 3D"
	StyleCartoonPop   Style = "Cartoon Pop"
	StylePinturaDoce  Style = "Pintura Doce"
)

type stylePreset struct {
	Key         string
	Description string
	Block       string
}

var stylePresets = map[Style]stylePreset{
	StyleMiniRealista: {
		Key:         "mini_realista",
		Description: "Realistic face, doll-like proportions, premium toy finish",
		Block: "STYLE REFERENCE: High-end professional realistic child mascot.\n" +
			"FACE: 100% realistic photographic face, preserving every detail, expression, and genetic feature of the child in the photo.\n" +
			"BODY: Slightly stylized \"doll-like\" proportions but with realistic skin textures and professional studio lighting.\n" +
			"FINISH: Soft shadows, high-end toy aesthetic, extremely polished, cinematic 8k resolution.",
	},
	StyleMagia3D: {
		Key:         "magia_3d",
		Description: "Animated-movie 3D look with big expressive eyes",
		Block: "STYLE REFERENCE: Modern 3D animation movie style (Pixar/Disney inspired).\n" +
			"FACE: Stylized but highly recognizable version of the child. Large, expressive, sparkly eyes with detailed irises.\n" +
			"BODY: Full 3D volumetric rendering, subsurface scattering on skin for a warm glow.\n" +
			"FINISH: Vibrant saturated colors, cinematic lighting, smooth 3D surfaces, masterpiece quality.",
	},
	StyleCartoonPop: {
		Key:         "cartoon_pop",
		Description: "Clean 2D vector sticker art with bold outlines",
		Block: "STYLE REFERENCE: Clean 2D vector art / Modern Sticker style.\n" +
			"FACE: Simplified but characteristic features of the child, bold clean outlines.\n" +
			"BODY: Proportional 2D cartoon body, flat colors with simple cell-shading.\n" +
			"FINISH: High contrast, thick professional lines, graphic and bold visual, commercial illustration style.",
	},
	StylePinturaDoce: {
		Key:         "pintura_doce",
		Description: "Soft painterly illustration in pastel tones",
		Block: "STYLE REFERENCE: Soft digital painting illustration.\n" +
			"FACE: Artistic representation with soft brushwork, preserving the child's likeness in a delicate way.\n" +
			"BODY: Painterly textures, no harsh outlines, magical atmosphere.\n" +
			"FINISH: Warm, cozy atmosphere, pastel color palette, soft focus and artistic lighting, watercolor and gouache textures.",
	},
}

var styleOrder = []Style{StyleMiniRealista, StyleMagia3D, StyleCartoonPop, StylePinturaDoce}

type StyleInfo struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Styles lists the presets in display order.
func Styles() []StyleInfo {
	out := make([]StyleInfo, 0, len(styleOrder))
	for _, s := range styleOrder {
		p := stylePresets[s]
		out = append(out, StyleInfo{Key: p.Key, Label: string(s), Description: p.Description})
	}
	return out
}

func (s Style) Valid() bool {
	_, ok := stylePresets[s]
	return ok
}

func (s Style) Key() string {
	return stylePresets[s].Key
}

// Instructions returns the fixed instruction block, or "" for an unknown style.
func (s Style) Instructions() string {
	return stylePresets[s].Block
}

// ParseStyle accepts a label ("Cartoon Pop") or a key ("cartoon_pop"),
// ignoring case and surrounding space.
func ParseStyle(raw string) (Style, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	for _, s := range styleOrder {
		if strings.ToLower(string(s)) == raw || stylePresets[s].Key == raw {
			return s, true
		}
	}
	return "", false
}
