package agent

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

// baseContaminationPatterns match symptoms that the agent has stopped
// behaving as itself — identity prefixes, role reversal, internal-context
// echoes.
var baseContaminationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^@\w+:\s*`),
	regexp.MustCompile(`(?i)sua função é atuar como`),
	regexp.MustCompile(`(?i)\bI am the (customer|client|user)\b`),
	regexp.MustCompile(`(?i)\bas the (customer service|support) (rep|representative|agent)\b`),
	regexp.MustCompile(`(?i)^(user|cliente|customer)\s*:\s*`),
	regexp.MustCompile(`(?i)\byou are now speaking (to|with) the (customer|client)\b`),
}

// ContaminationDetector flags an agent reply that has stopped behaving as
// itself: a base pattern set, extended per-agent and by the environment
// (CONTAMINATION_PATTERNS_EXTRA).
type ContaminationDetector struct {
	patterns []*regexp.Regexp
}

// NewContaminationDetector compiles the full pattern set for one agent:
// base patterns, agentExtra (that agent's own extensions), then whatever
// CONTAMINATION_PATTERNS_EXTRA adds process-wide. Patterns that fail to
// compile are skipped rather than panicking on bad agent config.
func NewContaminationDetector(agentExtra []string) *ContaminationDetector {
	patterns := make([]*regexp.Regexp, 0, len(baseContaminationPatterns)+len(agentExtra))
	patterns = append(patterns, baseContaminationPatterns...)
	for _, raw := range agentExtra {
		if re, err := regexp.Compile(raw); err == nil {
			patterns = append(patterns, re)
		}
	}
	for _, raw := range environmentExtraPatterns() {
		if re, err := regexp.Compile(raw); err == nil {
			patterns = append(patterns, re)
		}
	}
	return &ContaminationDetector{patterns: patterns}
}

// environmentExtraPatterns reads CONTAMINATION_PATTERNS_EXTRA, a
// comma-separated list of additional regexes.
func environmentExtraPatterns() []string {
	raw := os.Getenv("CONTAMINATION_PATTERNS_EXTRA")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Check returns the source of the first pattern that matches text, or ""
// if none fired.
func (d *ContaminationDetector) Check(text string) string {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return re.String()
		}
	}
	return ""
}

// CleanResponse best-effort strips every matched pattern from text, used
// when a caller wants to salvage a reply by removing a leaked identity
// prefix rather than blocking the whole message.
func (d *ContaminationDetector) CleanResponse(text string) string {
	for _, re := range d.patterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

var (
	detectorCacheMu sync.Mutex
	detectorCache   = map[string]*ContaminationDetector{}
)

// ContaminationDetectorFor returns the cached detector for agentID, building
// it from agentExtra on first use; one detector instance is cached per agent.
func ContaminationDetectorFor(agentID string, agentExtra []string) *ContaminationDetector {
	detectorCacheMu.Lock()
	defer detectorCacheMu.Unlock()
	if d, ok := detectorCache[agentID]; ok {
		return d
	}
	d := NewContaminationDetector(agentExtra)
	detectorCache[agentID] = d
	return d
}
