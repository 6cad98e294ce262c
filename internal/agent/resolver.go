package agent

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/agentbridge/internal/bootstrap"
	"github.com/nextlevelbuilder/agentbridge/internal/bus"
	"github.com/nextlevelbuilder/agentbridge/internal/config"
	"github.com/nextlevelbuilder/agentbridge/internal/memory"
	"github.com/nextlevelbuilder/agentbridge/internal/providers"
	"github.com/nextlevelbuilder/agentbridge/internal/skills"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
	"github.com/nextlevelbuilder/agentbridge/internal/tools"
	"github.com/nextlevelbuilder/agentbridge/internal/tracing"
)

// ConfigResolverDeps holds the shared dependencies used to build every agent
// defined in config.json's agents.list. There is no database here — each
// agent's settings come from AgentDefaults merged with its AgentSpec
// override, the same way cmd's standalone CLI bootstraps a single agent.
type ConfigResolverDeps struct {
	Config      *config.Config
	ProviderReg *providers.Registry
	Bus         bus.EventPublisher
	Sessions    store.SessionStore
	Tools       *tools.Registry
	ToolPolicy  *tools.PolicyEngine
	Skills      *skills.Loader
	Memory      *memory.AgentMemory
	OnEvent     func(AgentEvent)
	TraceCollector *tracing.Collector

	InjectionAction string
	MaxMessageChars int

	SandboxEnabled         bool
	SandboxContainerDir    string
	SandboxWorkspaceAccess string
}

// NewConfigResolver creates a ResolverFunc that builds Loops from the
// merged AgentDefaults/AgentSpec for agentKey. Used by the Router to
// lazily resolve agents referenced by key (cron jobs, delegation, channel
// bindings) that weren't registered eagerly at startup.
func NewConfigResolver(deps ConfigResolverDeps) ResolverFunc {
	return func(agentKey string) (Agent, error) {
		agentCfg := deps.Config.ResolveAgent(agentKey)

		provider, err := deps.ProviderReg.Get(agentCfg.Provider)
		if err != nil {
			names := deps.ProviderReg.List()
			if len(names) == 0 {
				return nil, fmt.Errorf("no providers configured for agent %s", agentKey)
			}
			provider, _ = deps.ProviderReg.Get(names[0])
			slog.Warn("agent provider not found, using fallback",
				"agent", agentKey, "wanted", agentCfg.Provider, "using", names[0])
		}
		if provider == nil {
			return nil, fmt.Errorf("no provider available for agent %s", agentKey)
		}

		workspace := config.ExpandHome(agentCfg.Workspace)
		if !filepath.IsAbs(workspace) {
			workspace, _ = filepath.Abs(workspace)
		}
		if workspace != "" {
			if err := os.MkdirAll(workspace, 0755); err != nil {
				slog.Warn("failed to create agent workspace directory", "workspace", workspace, "agent", agentKey, "error", err)
			}
		}

		rawFiles := bootstrap.LoadWorkspaceFiles(workspace)
		truncCfg := bootstrap.TruncateConfig{
			MaxCharsPerFile: agentCfg.BootstrapMaxChars,
			TotalMaxChars:   agentCfg.BootstrapTotalMaxChars,
		}
		if truncCfg.MaxCharsPerFile <= 0 {
			truncCfg.MaxCharsPerFile = bootstrap.DefaultMaxCharsPerFile
		}
		if truncCfg.TotalMaxChars <= 0 {
			truncCfg.TotalMaxChars = bootstrap.DefaultTotalMaxChars
		}
		contextFiles := bootstrap.BuildContextFiles(rawFiles, truncCfg)

		hasMemory := deps.Memory != nil
		if mc := agentCfg.Memory; mc != nil && mc.Enabled != nil && !*mc.Enabled {
			hasMemory = false
		}

		sandboxEnabled := deps.SandboxEnabled
		sandboxContainerDir := deps.SandboxContainerDir
		sandboxWorkspaceAccess := deps.SandboxWorkspaceAccess
		if agentCfg.Sandbox != nil {
			resolved := agentCfg.Sandbox.ToSandboxConfig()
			if sandboxContainerDir == "" {
				sandboxContainerDir = "/workspace"
			}
			sandboxWorkspaceAccess = string(resolved.WorkspaceAccess)
			sandboxEnabled = sandboxEnabled || (resolved.Mode != "" && resolved.Mode != "off")
		}

		var skillAllowList []string
		var agentToolPolicy *config.ToolPolicySpec
		if spec, ok := deps.Config.Agents.List[agentKey]; ok {
			skillAllowList = spec.Skills
			agentToolPolicy = spec.Tools
		}

		loop := NewLoop(LoopConfig{
			ID:                agentKey,
			AgentType:         agentCfg.AgentType,
			Provider:          provider,
			Model:             agentCfg.Model,
			ContextWindow:     agentCfg.ContextWindow,
			MaxIterations:     agentCfg.MaxToolIterations,
			Workspace:         workspace,
			Bus:               deps.Bus,
			Sessions:          deps.Sessions,
			Tools:             deps.Tools,
			ToolPolicy:        deps.ToolPolicy,
			AgentToolPolicy:   agentToolPolicy,
			OwnerIDs:          deps.Config.Gateway.OwnerIDs,
			SkillsLoader:      deps.Skills,
			SkillAllowList:    skillAllowList,
			HasMemory:         hasMemory,
			Memory:            deps.Memory,
			ContextFiles:      contextFiles,
			OnEvent:           deps.OnEvent,
			TraceCollector:    deps.TraceCollector,
			InjectionAction:   deps.InjectionAction,
			MaxMessageChars:   deps.MaxMessageChars,
			CompactionCfg:     agentCfg.Compaction,
			ContextPruningCfg: agentCfg.ContextPruning,
			SandboxEnabled:         sandboxEnabled,
			SandboxContainerDir:    sandboxContainerDir,
			SandboxWorkspaceAccess: sandboxWorkspaceAccess,
		})

		slog.Info("resolved agent from config", "agent", agentKey, "model", agentCfg.Model, "provider", agentCfg.Provider)
		return loop, nil
	}
}

// InvalidateAgent removes an agent from the router cache, forcing re-resolution.
// Used when config is reloaded.
func (r *Router) InvalidateAgent(agentKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentKey)
	slog.Debug("invalidated agent cache", "agent", agentKey)
}

// InvalidateAll clears the entire agent cache, forcing all agents to re-resolve.
// Used when global tools change (custom tools reload).
func (r *Router) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*agentEntry)
	slog.Debug("invalidated all agent caches")
}
