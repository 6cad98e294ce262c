package agent

import "regexp"

// injectionPatterns catch a user message trying to override the system
// prompt or impersonate the assistant/system role, grounded on the same
// regex-bank style as internal/tools/shell.go's defaultDenyPatterns.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore\s+(all\s+)?(previous|prior|above)\s+instructions?\b`),
	regexp.MustCompile(`(?i)\bdisregard\s+(all\s+)?(previous|prior|above)\b`),
	regexp.MustCompile(`(?i)\byou\s+are\s+now\b.*\b(dan|jailbreak|unrestricted)\b`),
	regexp.MustCompile(`(?i)\bsystem\s*:\s*`),
	regexp.MustCompile(`(?i)\bact\s+as\s+(if\s+you\s+are\s+)?(the\s+)?(system|admin|root|developer)\b`),
	regexp.MustCompile(`(?i)\breveal\s+(your\s+)?(system\s+prompt|instructions)\b`),
	regexp.MustCompile(`(?i)\bprint\s+(your\s+)?(system\s+prompt|instructions)\b`),
	regexp.MustCompile(`(?i)\[/?(system|inst)\]`),
	regexp.MustCompile(`(?i)<\|?(system|im_start)\|?>`),
}

// InputGuard scans an inbound user message for prompt-injection patterns
// before it ever reaches an LLM call. It is the router's Sentinel pre-check
// in its lightest mode: pattern matching only, no LLM call of its own.
type InputGuard struct {
	patterns []*regexp.Regexp
}

// NewInputGuard builds a guard with the base injection pattern set plus any
// extras (e.g. from CONTAMINATION_PATTERNS_EXTRA-style per-agent config).
func NewInputGuard(extra ...*regexp.Regexp) *InputGuard {
	patterns := make([]*regexp.Regexp, 0, len(injectionPatterns)+len(extra))
	patterns = append(patterns, injectionPatterns...)
	patterns = append(patterns, extra...)
	return &InputGuard{patterns: patterns}
}

// Scan returns the source text of every pattern that matched message, empty
// if none did.
func (g *InputGuard) Scan(message string) []string {
	var matches []string
	for _, re := range g.patterns {
		if re.MatchString(message) {
			matches = append(matches, re.String())
		}
	}
	return matches
}
