package skills

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/providers"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// AdaptivePersonalitySkill marks which agents run with the adaptive
// personality. The skill itself never transforms messages, adds no tools and
// injects no prompt block. Threshold reports the lowered fact-extraction
// trigger count (2 user messages) but nothing calls it: internal/memory
// applies that threshold, and omits the generic "what I know about this user"
// block, when AgentMemoryConfig.AdaptivePersonalityEnabled is set.
type AdaptivePersonalitySkill struct {
	allowedAgents map[string]bool // nil = enabled for every agent
}

// NewAdaptivePersonalitySkill creates the skill, scoped to allowedAgents
// (empty/nil enables it for every agent).
func NewAdaptivePersonalitySkill(allowedAgents []string) *AdaptivePersonalitySkill {
	var set map[string]bool
	if len(allowedAgents) > 0 {
		set = make(map[string]bool, len(allowedAgents))
		for _, a := range allowedAgents {
			set[a] = true
		}
	}
	return &AdaptivePersonalitySkill{allowedAgents: set}
}

func (s *AdaptivePersonalitySkill) Name() string { return "adaptive_personality" }

func (s *AdaptivePersonalitySkill) Enabled(agentKey string) bool {
	if s.allowedAgents == nil {
		return true
	}
	return s.allowedAgents[agentKey]
}

// Threshold returns the extraction trigger count this skill imposes.
func (s *AdaptivePersonalitySkill) Threshold() int { return 2 }

func (s *AdaptivePersonalitySkill) ProcessMessage(ctx context.Context, msg IncomingMessage) (*SkillResult, error) {
	return &SkillResult{Kind: ResultKindPassthrough}, nil
}

func (s *AdaptivePersonalitySkill) ToolDefinitions() []providers.ToolDefinition { return nil }

func (s *AdaptivePersonalitySkill) PostResponseHook(ctx context.Context, run AgentRun) error { return nil }

// --- Knowledge-sharing skill ---

// shareDirectiveRe matches the bracketed directive an agent emits to push a
// fact into the tenant's shared-knowledge pool, in the same bracket style as
// the [TOOL_CALL] wire format.
var shareDirectiveRe = regexp.MustCompile(`(?s)\[SHARE_KNOWLEDGE(?:\s+topic="([^"]*)")?\s*\](.*?)\[/SHARE_KNOWLEDGE\]`)

// KnowledgeSharingSkill scans an agent's response for [SHARE_KNOWLEDGE]
// directives in its PostResponseHook and stores each as a public
// shared-knowledge item other agents in the tenant can see.
type KnowledgeSharingSkill struct {
	tenantID uuid.UUID
	store    store.SharedKnowledgeStore
}

func NewKnowledgeSharingSkill(tenantID uuid.UUID, sk store.SharedKnowledgeStore) *KnowledgeSharingSkill {
	return &KnowledgeSharingSkill{tenantID: tenantID, store: sk}
}

func (s *KnowledgeSharingSkill) Name() string { return "knowledge_sharing" }

func (s *KnowledgeSharingSkill) Enabled(agentKey string) bool { return s.store != nil }

func (s *KnowledgeSharingSkill) ProcessMessage(ctx context.Context, msg IncomingMessage) (*SkillResult, error) {
	return &SkillResult{Kind: ResultKindPassthrough}, nil
}

func (s *KnowledgeSharingSkill) ToolDefinitions() []providers.ToolDefinition { return nil }

func (s *KnowledgeSharingSkill) PostResponseHook(ctx context.Context, run AgentRun) error {
	matches := shareDirectiveRe.FindAllStringSubmatch(run.Output, -1)
	if len(matches) == 0 {
		return nil
	}

	agentID, err := uuid.Parse(run.AgentID)
	if err != nil {
		return nil // not a DB-backed agent id; nothing to attribute the share to
	}

	for _, m := range matches {
		topic := strings.TrimSpace(m[1])
		content := strings.TrimSpace(m[2])
		if content == "" {
			continue
		}
		_, err := s.store.Create(ctx, store.SharedKnowledge{
			TenantID:      s.tenantID,
			SharedByAgent: agentID,
			Content:       content,
			Topic:         topic,
			AccessLevel:   store.AccessLevelPublic,
		})
		if err != nil {
			slog.Warn("knowledge_sharing: store item failed", "agent", run.AgentKey, "error", err)
		}
	}
	return nil
}
