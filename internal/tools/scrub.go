package tools

import "regexp"

// Patterns mirror what teradata-labs-loom's Hawk tracer redacts from span
// attributes before export; here they run over raw tool output instead.
var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardPattern = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	apiKeyPattern     = regexp.MustCompile(`(?i)(api[_-]?key|secret|token|bearer)\s*[:=]\s*\S+`)
)

// scrubSecrets redacts likely PII and credential-shaped substrings from tool
// output before it reaches the LLM or user, when Registry.scrubPII is set.
func scrubSecrets(s string) string {
	if s == "" {
		return s
	}
	s = apiKeyPattern.ReplaceAllString(s, "$1=[REDACTED]")
	s = emailPattern.ReplaceAllString(s, "[EMAIL_REDACTED]")
	s = phonePattern.ReplaceAllString(s, "[PHONE_REDACTED]")
	s = ssnPattern.ReplaceAllString(s, "[SSN_REDACTED]")
	s = creditCardPattern.ReplaceAllString(s, "[CARD_REDACTED]")
	return s
}
