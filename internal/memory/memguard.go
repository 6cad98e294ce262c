package memory

import (
	"regexp"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// credentialPatterns flags values that look like a live secret rather than
// a fact about the user. Grounded on internal/tools/shell.go's
// defaultDenyPatterns regex-bank style, but scoped to what a fact VALUE can
// contain rather than a shell command line.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`),        // OpenAI/Anthropic-shaped API key
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),              // AWS access key id
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),           // GitHub personal access token
	regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]{20,}`), // bearer token
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`), // long base64 blob
}

// shellFragmentPatterns catch instruction facts that are really shell
// commands in disguise ("when I ask X respond by running rm -rf /").
var shellFragmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\b(curl|wget)\b.*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`[;&|]\s*(rm|curl|wget|chmod|sudo)\b`),
	regexp.MustCompile("`[^`]+`"),
	regexp.MustCompile(`\$\([^)]+\)`),
}

// topicsAllowingCredentials is empty: no topic in the fixed vocabulary is a
// credential store, so a credential-shaped value is rejected regardless of
// which topic the extractor filed it under.
var topicsAllowingCredentials = map[store.FactTopic]bool{}

// Validate runs the MemGuard pre-store checks: reject credential-shaped
// values outside a credential topic, and reject
// instruction facts that embed shell-command fragments. It does not check
// for contradictions with existing facts — that is the store's conflict
// resolution rule (PGFactStore.Upsert), which needs to read the existing
// row and so cannot be a pure function.
func Validate(fact store.Fact) (ok bool, reason string) {
	if !fact.Topic.Valid() {
		return false, "unknown fact topic"
	}
	if !topicsAllowingCredentials[fact.Topic] {
		for _, re := range credentialPatterns {
			if re.MatchString(fact.Value) {
				return false, "value looks like a credential"
			}
		}
	}
	if fact.Topic == store.FactTopicInstructions {
		for _, re := range shellFragmentPatterns {
			if re.MatchString(fact.Value) {
				return false, "instruction fact contains a shell-command fragment"
			}
		}
	}
	return true, ""
}
