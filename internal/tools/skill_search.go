package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/agentbridge/internal/memory"
	"github.com/nextlevelbuilder/agentbridge/internal/skills"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

const skillSearchDefaultCount = 5

// EmbeddingSkillSearcher is implemented by pg.PGSkillStore once an embedder
// has been wired; SkillSearchTool falls back to substring matching against
// the loader's bundles when no searcher is set (standalone mode).
type EmbeddingSkillSearcher interface {
	Search(ctx context.Context, queryText string, k int) ([]store.SkillRecord, error)
}

// SkillSearchTool lets the agent discover skill bundles by description
// instead of having every bundle inlined in the system prompt (used once the
// bundle count/token estimate crosses loop_history.go's inline thresholds).
type SkillSearchTool struct {
	loader   *skills.Loader
	searcher EmbeddingSkillSearcher
	embedder memory.Embedder
}

func NewSkillSearchTool(loader *skills.Loader) *SkillSearchTool {
	return &SkillSearchTool{loader: loader}
}

// SetEmbeddingSearcher wires a semantic backend (managed mode); without one,
// Execute falls back to substring matching on name/description.
func (t *SkillSearchTool) SetEmbeddingSearcher(searcher EmbeddingSkillSearcher, embedder memory.Embedder) {
	t.searcher = searcher
	t.embedder = embedder
}

func (t *SkillSearchTool) Name() string { return "skill_search" }

func (t *SkillSearchTool) Description() string {
	return "Search available skills by capability description. Returns matching skill names and descriptions; read the skill's file for full instructions."
}

func (t *SkillSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "What you're trying to do; matched against skill descriptions.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SkillSearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if query == "" {
		return ErrorResult("query is required")
	}

	if t.searcher != nil {
		recs, err := t.searcher.Search(ctx, query, skillSearchDefaultCount)
		if err == nil {
			return NewResult(formatSkillRecords(recs))
		}
		// fall through to substring matching on searcher failure
	}

	return NewResult(formatSkillInfos(substringMatchSkills(t.loader.ListSkills(), query)))
}

func substringMatchSkills(all []skills.Info, query string) []skills.Info {
	q := strings.ToLower(query)
	var out []skills.Info
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Description), q) {
			out = append(out, s)
		}
		if len(out) >= skillSearchDefaultCount {
			break
		}
	}
	return out
}

func formatSkillInfos(matches []skills.Info) string {
	if len(matches) == 0 {
		return "No matching skills found."
	}
	var sb strings.Builder
	for _, s := range matches {
		sb.WriteString(fmt.Sprintf("%s: %s\n", s.Name, s.Description))
	}
	return sb.String()
}

func formatSkillRecords(recs []store.SkillRecord) string {
	if len(recs) == 0 {
		return "No matching skills found."
	}
	var sb strings.Builder
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%s: %s\n", r.Name, r.Description))
	}
	return sb.String()
}
