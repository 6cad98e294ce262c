package memory

import (
	"sort"
	"strings"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// FormatOptions controls FormatContext's output.
type FormatOptions struct {
	// IncludeToolOutput keeps MemoryRoleTool ring entries in the "recent
	// conversation" block. The agent loop calls FormatContext with an empty
	// FormatOptions, so tool entries are dropped there; no freshness
	// heuristic or /inject command sets this field.
	IncludeToolOutput bool
}

// FormatContext renders a Context into the text prefix injected ahead of
// the user's turn, hard-capping total length at cfg.MaxContextChars
// (default ~50 000 chars). Tool-output entries are dropped from the
// "recent conversation" block unless opts.IncludeToolOutput is set, and the
// "what I know about this user" block is omitted entirely when the agent
// has the adaptive-personality skill enabled (that skill injects its own
// style block instead).
func (m *AgentMemory) FormatContext(c *Context, opts FormatOptions) string {
	var sb strings.Builder

	if len(c.Working) > 0 {
		sb.WriteString("## Recent conversation\n")
		for _, e := range c.Working {
			if e.Role == store.MemoryRoleTool && !opts.IncludeToolOutput {
				continue
			}
			sb.WriteString(string(e.Role))
			sb.WriteString(": ")
			sb.WriteString(e.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(c.Episodic) > 0 {
		sb.WriteString("## Related past exchanges\n")
		for _, match := range c.Episodic {
			sb.WriteString("- ")
			sb.WriteString(match.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if !m.cfg.AdaptivePersonalityEnabled && len(c.Facts) > 0 {
		sb.WriteString("## What I know about this user\n")
		topics := make([]string, 0, len(c.Facts))
		for topic := range c.Facts {
			topics = append(topics, string(topic))
		}
		sort.Strings(topics)
		for _, topic := range topics {
			sb.WriteString("### ")
			sb.WriteString(topic)
			sb.WriteString("\n")
			for _, f := range c.Facts[store.FactTopic(topic)] {
				sb.WriteString("- ")
				sb.WriteString(f.Key)
				sb.WriteString(": ")
				sb.WriteString(f.Value)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	if len(c.Shared) > 0 {
		sb.WriteString("## Shared team knowledge\n")
		for _, s := range c.Shared {
			sb.WriteString("- ")
			sb.WriteString(s.Content)
			sb.WriteString("\n")
		}
	}

	out := sb.String()
	if len(out) > m.cfg.MaxContextChars {
		out = out[:m.cfg.MaxContextChars]
	}
	return out
}
