package threads

import "testing"

func TestParseInteractiveMenuList(t *testing.T) {
	body := `{"type":"list","sections":[{"rows":[{"title":"Outro"},{"title":"1234567890123 — em trânsito"}]}]}`
	options, ok := ParseInteractiveMenu(body)
	if !ok || len(options) != 2 {
		t.Fatalf("expected 2 options, got ok=%v options=%v", ok, options)
	}
}

func TestParseInteractiveMenuRejectsPlainText(t *testing.T) {
	if _, ok := ParseInteractiveMenu("just a regular reply"); ok {
		t.Error("plain text should not parse as an interactive menu")
	}
}

func TestChooseMenuOptionTrackingNumberWins(t *testing.T) {
	options := []menuOption{{Title: "Outro"}, {Title: "1234567890123 — em trânsito"}}
	choice := ChooseMenuOption(options, "obter status rastreio 1234567890123")
	if choice != "1234567890123 — em trânsito" {
		t.Errorf("expected tracking-number match to win, got %q", choice)
	}
}

func TestMenuSignatureStableAcrossOrder(t *testing.T) {
	a := MenuSignature([]menuOption{{Title: "X"}, {Title: "Y"}})
	b := MenuSignature([]menuOption{{Title: "Y"}, {Title: "X"}})
	if a != b {
		t.Error("expected signature to be order-independent")
	}
}
