package bootstrap

import (
	"os"
	"path/filepath"
)

// Context file names seeded into (and read back from) an agent's workspace.
const (
	AgentsFile     = "AGENTS.md"
	SoulFile       = "SOUL.md"
	ToolsFile      = "TOOLS.md"
	IdentityFile   = "IDENTITY.md"
	UserFile       = "USER.md"
	HeartbeatFile  = "HEARTBEAT.md"
	BootstrapFile  = "BOOTSTRAP.md"
	DelegationFile = "DELEGATION.md"
	TeamFile       = "TEAM.md"
)

// Default truncation limits, used when an agent doesn't override them.
const (
	DefaultMaxCharsPerFile = 20000
	DefaultTotalMaxChars   = 24000
)

// ContextFile is a named chunk of persona/workspace context injected into
// an agent's system prompt (AGENTS.md, SOUL.md, per-user files, ...).
type ContextFile struct {
	Path    string
	Content string
}

// TruncateConfig bounds how much context-file content is sent to the model.
type TruncateConfig struct {
	MaxCharsPerFile int
	TotalMaxChars   int
}

// LoadWorkspaceFiles reads the standard context files present in workspaceDir.
// Missing files are silently skipped — not every workspace has all of them.
func LoadWorkspaceFiles(workspaceDir string) []ContextFile {
	var out []ContextFile
	for _, name := range templateFiles {
		data, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil {
			continue
		}
		out = append(out, ContextFile{Path: name, Content: string(data)})
	}
	if data, err := os.ReadFile(filepath.Join(workspaceDir, BootstrapFile)); err == nil {
		out = append(out, ContextFile{Path: BootstrapFile, Content: string(data)})
	}
	return out
}

// BuildContextFiles truncates raw file content to fit cfg's per-file and
// total character budgets, preserving the earliest files first (AGENTS.md
// before SOUL.md before per-user files, matching the order LoadWorkspaceFiles
// produces them in).
func BuildContextFiles(raw []ContextFile, cfg TruncateConfig) []ContextFile {
	maxPerFile := cfg.MaxCharsPerFile
	if maxPerFile <= 0 {
		maxPerFile = DefaultMaxCharsPerFile
	}
	totalMax := cfg.TotalMaxChars
	if totalMax <= 0 {
		totalMax = DefaultTotalMaxChars
	}

	out := make([]ContextFile, 0, len(raw))
	remaining := totalMax
	for _, f := range raw {
		content := f.Content
		if len(content) > maxPerFile {
			content = content[:maxPerFile] + "\n...[truncated]"
		}
		if remaining <= 0 {
			break
		}
		if len(content) > remaining {
			content = content[:remaining] + "\n...[truncated]"
		}
		out = append(out, ContextFile{Path: f.Path, Content: content})
		remaining -= len(content)
	}
	return out
}
