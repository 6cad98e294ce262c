package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// Info describes a declarative SKILL.md bundle's frontmatter metadata.
type Info struct {
	Name        string
	Description string
	Path        string
	AllowAgents []string // empty = enabled for every agent
}

// markdownSkill wraps a SKILL.md-declared capability bundle. It never
// transforms messages or runs hooks itself — it exists to publish its
// description into the system prompt / skill_search index so the LLM knows
// the capability exists and can read the full bundle via read_file.
type markdownSkill struct {
	info Info
}

func (s *markdownSkill) Name() string { return s.info.Name }

func (s *markdownSkill) Enabled(agentKey string) bool {
	if len(s.info.AllowAgents) == 0 {
		return true
	}
	for _, a := range s.info.AllowAgents {
		if a == agentKey {
			return true
		}
	}
	return false
}

func (s *markdownSkill) ProcessMessage(ctx context.Context, msg IncomingMessage) (*SkillResult, error) {
	return &SkillResult{Kind: ResultKindPassthrough}, nil
}

func (s *markdownSkill) ToolDefinitions() []providers.ToolDefinition { return nil }

func (s *markdownSkill) PostResponseHook(ctx context.Context, run AgentRun) error { return nil }

var (
	frontmatterRe      = regexp.MustCompile(`(?s)^---\n(.*?)\n---`)
	frontmatterStripRe = regexp.MustCompile(`(?s)^---\n.*?\n---\n*`)
)

// loadMarkdownSkill reads dir/SKILL.md and parses its frontmatter (JSON or a
// simple YAML subset, matching the other example repo's specialist loader).
func loadMarkdownSkill(dir string) (*markdownSkill, error) {
	specFile := filepath.Join(dir, "SKILL.md")
	content, err := os.ReadFile(specFile)
	if err != nil {
		return nil, err
	}

	info := Info{Name: filepath.Base(dir), Path: specFile}
	if fm := extractFrontmatter(string(content)); fm != "" {
		var jsonMeta struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Agents      []string `json:"agents"`
		}
		if err := json.Unmarshal([]byte(fm), &jsonMeta); err == nil {
			if jsonMeta.Name != "" {
				info.Name = jsonMeta.Name
			}
			info.Description = jsonMeta.Description
			info.AllowAgents = jsonMeta.Agents
		} else {
			yamlMeta := parseSimpleYAML(fm)
			if v, ok := yamlMeta["name"]; ok && v != "" {
				info.Name = v
			}
			info.Description = yamlMeta["description"]
			if v, ok := yamlMeta["agents"]; ok && v != "" {
				parts := strings.Split(v, ",")
				for i := range parts {
					parts[i] = strings.TrimSpace(parts[i])
				}
				info.AllowAgents = parts
			}
		}
	}

	return &markdownSkill{info: info}, nil
}

func extractFrontmatter(content string) string {
	m := frontmatterRe.FindStringSubmatch(content)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

func stripFrontmatter(content string) string {
	return frontmatterStripRe.ReplaceAllString(content, "")
}

func parseSimpleYAML(content string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			result[key] = value
		}
	}
	return result
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
