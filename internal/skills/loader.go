package skills

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// Loader discovers declarative SKILL.md bundles under a workspace-local
// skills directory and one or more global directories, and holds the set of
// built-in (Go-coded) skills registered at startup. FilterSkills/BuildSummary
// only consider markdown bundles (used for system-prompt inlining and the
// skill_search tool); ProcessMessage/PostResponseHook run across every
// enabled skill, markdown and built-in alike.
type Loader struct {
	mu       sync.RWMutex
	dirs     []string
	bundles  map[string]*markdownSkill
	builtins []Skill
}

// NewLoader creates a loader scanning workspaceDir/skills, globalDir, and an
// optional extraDir. Any of the three may be empty, in which case it is
// skipped. Bundles are loaded immediately; call Reload to rescan later.
func NewLoader(workspaceDir, globalDir, extraDir string) *Loader {
	var dirs []string
	if workspaceDir != "" {
		dirs = append(dirs, filepath.Join(workspaceDir, "skills"))
	}
	if globalDir != "" {
		dirs = append(dirs, globalDir)
	}
	if extraDir != "" {
		dirs = append(dirs, extraDir)
	}
	l := &Loader{dirs: dirs, bundles: make(map[string]*markdownSkill)}
	l.reloadBundles()
	return l
}

// RegisterBuiltin adds a built-in Go-coded skill. Built-ins are independent
// of SKILL.md discovery and survive Reload.
func (l *Loader) RegisterBuiltin(s Skill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builtins = append(l.builtins, s)
}

// WritableDir returns the directory new bundles should be written to: the
// workspace-local skills directory, the first configured directory, if any.
func (l *Loader) WritableDir() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.dirs) == 0 {
		return "", false
	}
	return l.dirs[0], true
}

// Dirs returns the directories this loader scans, in priority order (first
// match wins on name collisions).
func (l *Loader) Dirs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.dirs))
	copy(out, l.dirs)
	return out
}

// Reload rescans all bundle directories, replacing the in-memory set
// atomically. Safe to call from the fsnotify watcher goroutine.
func (l *Loader) Reload() {
	l.reloadBundles()
}

func (l *Loader) reloadBundles() {
	bundles := make(map[string]*markdownSkill)
	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			ms, err := loadMarkdownSkill(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			if _, exists := bundles[ms.info.Name]; exists {
				continue // earlier directory in priority order wins
			}
			bundles[ms.info.Name] = ms
		}
	}

	l.mu.Lock()
	l.bundles = bundles
	l.mu.Unlock()
	slog.Info("skills reloaded", "count", len(bundles))
}

// ListSkills returns every discovered markdown bundle's info, sorted by name.
func (l *Loader) ListSkills() []Info {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Info, 0, len(l.bundles))
	for _, b := range l.bundles {
		out = append(out, b.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FilterSkills returns the bundles visible given an allow list; a nil/empty
// list allows all.
func (l *Loader) FilterSkills(allowList []string) []Info {
	all := l.ListSkills()
	if len(allowList) == 0 {
		return all
	}
	allowed := make(map[string]bool, len(allowList))
	for _, a := range allowList {
		allowed[a] = true
	}
	var out []Info
	for _, info := range all {
		if allowed[info.Name] {
			out = append(out, info)
		}
	}
	return out
}

// BuildSummary renders an XML summary of the allowed bundles for inlining
// into the system prompt.
func (l *Loader) BuildSummary(allowList []string) string {
	filtered := l.FilterSkills(allowList)
	if len(filtered) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<skills>\n")
	for _, s := range filtered {
		sb.WriteString("  <skill>\n")
		sb.WriteString(fmt.Sprintf("    <name>%s</name>\n", escapeXML(s.Name)))
		sb.WriteString(fmt.Sprintf("    <description>%s</description>\n", escapeXML(s.Description)))
		sb.WriteString("  </skill>\n")
	}
	sb.WriteString("</skills>")
	return sb.String()
}

// GetContent returns a bundle's body with frontmatter stripped.
func (l *Loader) GetContent(name string) (string, bool) {
	l.mu.RLock()
	b, ok := l.bundles[name]
	l.mu.RUnlock()
	if !ok {
		return "", false
	}
	raw, err := os.ReadFile(b.info.Path)
	if err != nil {
		return "", false
	}
	return stripFrontmatter(string(raw)), true
}

// GetInfo returns a single bundle's metadata.
func (l *Loader) GetInfo(name string) (Info, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bundles[name]
	if !ok {
		return Info{}, false
	}
	return b.info, true
}

// allSkills returns markdown bundles and built-ins together, for the
// message-processing and post-response pipelines.
func (l *Loader) allSkills() []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Skill, 0, len(l.bundles)+len(l.builtins))
	for _, b := range l.bundles {
		out = append(out, b)
	}
	out = append(out, l.builtins...)
	return out
}

// ProcessMessage runs every enabled skill's ProcessMessage, stopping at the
// first one that doesn't pass through unchanged (spec's
// skill_manager.process_message_with_skills).
func (l *Loader) ProcessMessage(ctx context.Context, agentKey string, msg IncomingMessage) (*SkillResult, error) {
	for _, s := range l.allSkills() {
		if !s.Enabled(agentKey) {
			continue
		}
		res, err := s.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Warn("skill process_message failed", "skill", s.Name(), "error", err)
			continue
		}
		if res == nil || res.Kind == ResultKindPassthrough {
			continue
		}
		return res, nil
	}
	return &SkillResult{Kind: ResultKindPassthrough, Text: msg.Text}, nil
}

// PostResponseHook invokes every enabled skill's PostResponseHook. Individual
// hook errors are logged, not propagated, so one misbehaving skill can't
// block the others.
func (l *Loader) PostResponseHook(ctx context.Context, agentKey string, run AgentRun) {
	for _, s := range l.allSkills() {
		if !s.Enabled(agentKey) {
			continue
		}
		if err := s.PostResponseHook(ctx, run); err != nil {
			slog.Warn("skill post_response_hook failed", "skill", s.Name(), "error", err)
		}
	}
}

// ToolDefinitions collects tool schemas contributed by every enabled skill.
func (l *Loader) ToolDefinitions(agentKey string) []providers.ToolDefinition {
	var out []providers.ToolDefinition
	for _, s := range l.allSkills() {
		if !s.Enabled(agentKey) {
			continue
		}
		out = append(out, s.ToolDefinitions()...)
	}
	return out
}
