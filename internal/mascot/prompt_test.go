package mascot

import (
	"strings"
	"testing"
)

func TestBuildPromptContainsOnlyOwnStyleBlock(t *testing.T) {
	for _, s := range styleOrder {
		t.Run(s.Key(), func(t *testing.T) {
			prompt := BuildPrompt(s, "tutu", "circus")
			if !strings.Contains(prompt, s.Instructions()) {
				t.Fatalf("prompt for %s is missing its block:\n%s", s, prompt)
			}
			for _, other := range styleOrder {
				if other == s {
					continue
				}
				if strings.Contains(prompt, other.Instructions()) {
					t.Errorf("prompt for %s contains block of %s", s, other)
				}
			}
		})
	}
}

func TestBuildPromptEmptyOptionalFields(t *testing.T) {
	prompt := BuildPrompt(StyleMagia3D, "", "")

	if !strings.Contains(prompt, "DETAILS: "+defaultClothing) {
		t.Errorf("default clothing phrase missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "THEME") {
		t.Errorf("empty theme should produce no theme line:\n%s", prompt)
	}
	if !strings.HasPrefix(prompt, "TASK: ") {
		t.Errorf("prompt should open with the task instruction:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "RULES: Full body, white background, no text or watermarks, high quality, not a caricature.") {
		t.Errorf("prompt should end with the output rules:\n%s", prompt)
	}

	blank := BuildPrompt(StyleMagia3D, "   ", "\t")
	if blank != prompt {
		t.Errorf("whitespace-only fields should behave like empty ones")
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	a := BuildPrompt(StylePinturaDoce, "yellow raincoat", "Under the Sea")
	b := BuildPrompt(StylePinturaDoce, "yellow raincoat", "Under the Sea")
	if a != b {
		t.Error("identical inputs produced different prompts")
	}
}

func TestBuildPromptCartoonPopScenario(t *testing.T) {
	prompt := BuildPrompt(StyleCartoonPop, "red cape", "")

	if !strings.Contains(prompt, StyleCartoonPop.Instructions()) {
		t.Error("Cartoon Pop block missing")
	}
	if !strings.Contains(prompt, "DETAILS: red cape") {
		t.Error("clothing text missing")
	}
	if strings.Contains(prompt, defaultClothing) {
		t.Error("default clothing should not appear when clothing is given")
	}
	if strings.Contains(prompt, "Party theme") || strings.Contains(prompt, "THEME") {
		t.Error("no theme sentence expected")
	}
}

func TestBuildPromptIncludesTheme(t *testing.T) {
	prompt := BuildPrompt(StyleMiniRealista, "", "Astronaut")
	if !strings.Contains(prompt, "THEME: Party theme: Astronaut.") {
		t.Errorf("theme sentence missing:\n%s", prompt)
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in   string
		want Style
		ok   bool
	}{
		{"Cartoon Pop", StyleCartoonPop, true},
		{"  cartoon pop ", StyleCartoonPop, true},
		{"magia_3d", StyleMagia3D, true},
		{"PINTURA_DOCE", StylePinturaDoce, true},
		{"Mini Realista", StyleMiniRealista, true},
		{"watercolor", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStyle(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStyle(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestStylesCatalog(t *testing.T) {
	styles := Styles()
	if len(styles) != 4 {
		t.Fatalf("len = %d, want 4", len(styles))
	}
	seen := map[string]bool{}
	for _, s := range styles {
		style, ok := ParseStyle(s.Key)
		if !ok || string(style) != s.Label {
			t.Errorf("catalog entry %+v does not round-trip", s)
		}
		if style.Instructions() == "" {
			t.Errorf("style %s has no instruction block", s.Label)
		}
		if seen[style.Instructions()] {
			t.Errorf("style %s shares its block", s.Label)
		}
		seen[style.Instructions()] = true
	}
}
