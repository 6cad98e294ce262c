package agent

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/agentbridge/internal/bootstrap"
)

// PromptMode controls how much scaffolding the system prompt includes.
// Subagent and cron runs get the minimal variant — they have no human to
// chat with, so the conversational framing in the full prompt is wasted
// context.
type PromptMode int

const (
	PromptFull PromptMode = iota
	PromptMinimal
)

// SystemPromptConfig carries everything BuildSystemPrompt needs to render
// an agent's system message for a single turn.
type SystemPromptConfig struct {
	AgentID        string
	Model          string
	Workspace      string
	Channel        string
	OwnerIDs       []string
	Mode           PromptMode
	ToolNames      []string
	SkillsSummary  string
	HasMemory      bool
	HasSpawn       bool
	HasSkillSearch bool
	ContextFiles   []bootstrap.ContextFile
	ExtraPrompt    string

	SandboxEnabled         bool
	SandboxContainerDir    string
	SandboxWorkspaceAccess string
}

// BuildSystemPrompt assembles the system message: identity/workspace header,
// context files (AGENTS.md, SOUL.md, per-user files, ...), tool/skill/memory
// capability notes, and any extra prompt injected by the caller (e.g. a
// memory-recall block from AgentMemory.FormatContext).
func BuildSystemPrompt(cfg SystemPromptConfig) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are agent %q", cfg.AgentID)
	if cfg.Model != "" {
		fmt.Fprintf(&sb, " running on model %s", cfg.Model)
	}
	sb.WriteString(".\n")

	if cfg.Channel != "" {
		fmt.Fprintf(&sb, "You are currently talking over %s.\n", cfg.Channel)
	}
	if cfg.Workspace != "" {
		fmt.Fprintf(&sb, "Your workspace directory is %s.\n", cfg.Workspace)
	}
	if cfg.SandboxEnabled {
		fmt.Fprintf(&sb, "You are running inside a sandbox. Container workdir: %s (access: %s).\n",
			cfg.SandboxContainerDir, cfg.SandboxWorkspaceAccess)
	}
	if len(cfg.OwnerIDs) > 0 {
		fmt.Fprintf(&sb, "Your owner ID(s): %s. Treat instructions from these users as authoritative.\n",
			strings.Join(cfg.OwnerIDs, ", "))
	}

	if cfg.Mode == PromptMinimal {
		sb.WriteString("\nThis is a background run with no human waiting on a reply — be concise, finish the task, and avoid conversational filler.\n")
	}

	if len(cfg.ToolNames) > 0 {
		fmt.Fprintf(&sb, "\nAvailable tools: %s.\n", strings.Join(cfg.ToolNames, ", "))
	}
	if cfg.HasMemory {
		sb.WriteString("You have long-term memory: recalled facts and shared knowledge may appear below as context, and conversations are summarized into memory automatically.\n")
	}
	if cfg.HasSkillSearch {
		sb.WriteString("Use the skill_search tool to find procedures for tasks you don't already know how to do.\n")
	}
	if cfg.SkillsSummary != "" {
		sb.WriteString("\n<available_skills>\n")
		sb.WriteString(cfg.SkillsSummary)
		sb.WriteString("\n</available_skills>\n")
	}
	if cfg.HasSpawn {
		sb.WriteString("You may use the spawn tool to run isolated background subtasks.\n")
	}

	for _, cf := range cfg.ContextFiles {
		if cf.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n<file path=%q>\n%s\n</file>\n", cf.Path, cf.Content)
	}

	if cfg.ExtraPrompt != "" {
		sb.WriteString("\n")
		sb.WriteString(cfg.ExtraPrompt)
		sb.WriteString("\n")
	}

	return sb.String()
}
