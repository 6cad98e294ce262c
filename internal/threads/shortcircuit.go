package threads

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// menuOption is one interactive choice surfaced by an external bot (a list
// row or a button), abstracted away from WhatsApp's specific JSON shape.
type menuOption struct {
	Title string
}

// interactiveMenuPayload parses the handful of shapes an inbound JSON body
// can take when it's a WhatsApp interactive message: a list with sections of
// rows, or a flat buttons array.
type interactiveMenuPayload struct {
	Type     string `json:"type"`
	Sections []struct {
		Rows []struct {
			Title string `json:"title"`
		} `json:"rows"`
	} `json:"sections"`
	Buttons []struct {
		Title string `json:"title"`
	} `json:"buttons"`
}

// ParseInteractiveMenu extracts menu options from body if it looks like an
// interactive list/buttons payload, returning ok=false for plain text.
func ParseInteractiveMenu(body string) (options []menuOption, ok bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var payload interactiveMenuPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, false
	}
	if payload.Type != "" && payload.Type != "list" && payload.Type != "buttons" && payload.Type != "interactive" {
		return nil, false
	}

	for _, section := range payload.Sections {
		for _, row := range section.Rows {
			if row.Title != "" {
				options = append(options, menuOption{Title: row.Title})
			}
		}
	}
	for _, b := range payload.Buttons {
		if b.Title != "" {
			options = append(options, menuOption{Title: b.Title})
		}
	}
	if len(options) == 0 {
		return nil, false
	}
	return options, true
}

// trackingNumberPattern matches a long digit run (tracking/order numbers),
// which ranks above plain keyword overlap when present in both the objective
// and a menu option.
var trackingNumberPattern = regexp.MustCompile(`\d{8,}`)

// MenuSignature derives a stable key for a set of options so the engine can
// remember its chosen reply and avoid re-prompting an identical menu.
func MenuSignature(options []menuOption) string {
	titles := make([]string, len(options))
	for i, o := range options {
		titles[i] = o.Title
	}
	sort.Strings(titles)
	h := sha1.Sum([]byte(strings.Join(titles, "\x1f")))
	return hex.EncodeToString(h[:])
}

// ChooseMenuOption ranks options against objective: a tracking-number match
// between the objective and an option wins outright; otherwise the option
// with the highest case-insensitive keyword overlap with objective is
// chosen. Returns "" if options is empty.
func ChooseMenuOption(options []menuOption, objective string) string {
	if len(options) == 0 {
		return ""
	}

	if tracking := trackingNumberPattern.FindString(objective); tracking != "" {
		for _, o := range options {
			if strings.Contains(o.Title, tracking) {
				return o.Title
			}
		}
	}

	objWords := keywordSet(objective)
	best := options[0]
	bestScore := -1
	for _, o := range options {
		score := 0
		for w := range keywordSet(o.Title) {
			if objWords[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = o
		}
	}
	return best.Title
}

func keywordSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) >= 3 {
			set[w] = true
		}
	}
	return set
}
