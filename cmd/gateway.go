package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
	"github.com/nextlevelbuilder/agentbridge/internal/bootstrap"
	"github.com/nextlevelbuilder/agentbridge/internal/bus"
	"github.com/nextlevelbuilder/agentbridge/internal/channels"
	"github.com/nextlevelbuilder/agentbridge/internal/channels/discord"
	"github.com/nextlevelbuilder/agentbridge/internal/channels/telegram"
	"github.com/nextlevelbuilder/agentbridge/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/agentbridge/internal/config"
	"github.com/nextlevelbuilder/agentbridge/internal/gateway"
	"github.com/nextlevelbuilder/agentbridge/internal/providers"
	"github.com/nextlevelbuilder/agentbridge/internal/scheduler"
	"github.com/nextlevelbuilder/agentbridge/internal/sessions"
	"github.com/nextlevelbuilder/agentbridge/internal/skills"
	"github.com/nextlevelbuilder/agentbridge/internal/store/file"
	"github.com/nextlevelbuilder/agentbridge/internal/threads"
	"github.com/nextlevelbuilder/agentbridge/internal/tools"
	"github.com/nextlevelbuilder/agentbridge/pkg/protocol"
)

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.HasAnyProvider() {
		slog.Error("no AI provider API key configured", "config", cfgPath)
		os.Exit(1)
	}

	msgBus := bus.New()

	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)

	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	os.MkdirAll(workspace, 0755)

	if seeded, seedErr := bootstrap.EnsureWorkspaceFiles(workspace); seedErr != nil {
		slog.Warn("bootstrap template seeding failed", "error", seedErr)
	} else if len(seeded) > 0 {
		slog.Info("seeded workspace templates", "files", seeded)
	}

	dataDir := os.Getenv("GOCLAW_DATA_DIR")
	if dataDir == "" {
		dataDir = config.ExpandHome("~/.goclaw/data")
	}
	os.MkdirAll(dataDir, 0755)

	// --- File-backed stores (standalone mode; no database dependency) ---
	sessStore := file.NewFileSessionStore(sessions.NewManager(config.ExpandHome(cfg.Sessions.Storage)))
	pairingStore := file.NewFilePairingStore(filepath.Join(dataDir, "pairing.json"))
	cronStore := file.NewFileCronStore(filepath.Join(dataDir, "cron", "jobs.json"))
	cronStore.SetRetryConfig(resolveCronRetryConfig(cfg))
	threadStore := file.NewFileThreadStore(filepath.Join(dataDir, "threads.json"))

	// --- Tool registry. Filesystem/exec tools are rooted at the default
	// agent's workspace; per-agent overrides reuse the shared registry the
	// same way the standalone CLI bootstrap does. ---
	agentDefaults := cfg.ResolveAgent(config.DefaultAgentID)
	agentRouter := agent.NewRouter()
	threadEngine := threads.NewEngine(threadStore, agentRouter, threads.Config{})
	toolsReg := tools.NewRegistry()
	toolsReg.Register(tools.NewWriteFileTool(workspace, agentDefaults.RestrictToWorkspace))
	toolsReg.Register(tools.NewListFilesTool(workspace, agentDefaults.RestrictToWorkspace))
	toolsReg.Register(tools.NewEditTool(workspace, agentDefaults.RestrictToWorkspace))
	toolsReg.Register(tools.NewExecTool(workspace, agentDefaults.RestrictToWorkspace))
	toolsReg.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveEnabled: cfg.Tools.Web.Brave.Enabled,
		BraveAPIKey:  cfg.Tools.Web.Brave.APIKey,
		DDGEnabled:   cfg.Tools.Web.DuckDuckGo.Enabled,
	}))
	toolsReg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	toolsReg.Register(tools.NewReadImageTool(providerRegistry))
	toolsReg.Register(tools.NewCreateImageTool(providerRegistry))

	if cfg.Tools.RateLimitPerHour > 0 {
		toolsReg.SetRateLimiter(tools.NewToolRateLimiter(cfg.Tools.RateLimitPerHour))
	}
	if cfg.Tools.ScrubCredentials != nil && !*cfg.Tools.ScrubCredentials {
		toolsReg.SetScrubbing(false)
	}

	globalSkillsDir := os.Getenv("GOCLAW_SKILLS_DIR")
	if globalSkillsDir == "" {
		globalSkillsDir = filepath.Join(config.ExpandHome("~/.goclaw"), "skills")
	}
	skillsLoader := skills.NewLoader(workspace, globalSkillsDir, "")
	skillSearchTool := tools.NewSkillSearchTool(skillsLoader)
	toolsReg.Register(skillSearchTool)

	readFileTool := tools.NewReadFileTool(workspace, agentDefaults.RestrictToWorkspace)
	readFileTool.AllowPaths(globalSkillsDir)
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		readFileTool.AllowPaths(filepath.Join(homeDir, ".agents", "skills"))
	}
	toolsReg.Register(readFileTool)

	sessionsListTool := tools.NewSessionsListTool()
	sessionsListTool.SetSessionStore(sessStore)
	toolsReg.Register(sessionsListTool)

	sessionStatusTool := tools.NewSessionStatusTool()
	sessionStatusTool.SetSessionStore(sessStore)
	toolsReg.Register(sessionStatusTool)

	sessionsHistoryTool := tools.NewSessionsHistoryTool()
	sessionsHistoryTool.SetSessionStore(sessStore)
	toolsReg.Register(sessionsHistoryTool)

	sessionsSendTool := tools.NewSessionsSendTool()
	sessionsSendTool.SetSessionStore(sessStore)
	sessionsSendTool.SetMessageBus(msgBus)
	toolsReg.Register(sessionsSendTool)

	threadsStartTool := tools.NewThreadsStartTool()
	threadsStartTool.SetEngine(threadEngine)
	threadsStartTool.SetMessageBus(msgBus)
	toolsReg.Register(threadsStartTool)

	toolPE := tools.NewPolicyEngine(&cfg.Tools)

	// Memory, TTS, sandbox, subagents, exec-approval, and dynamic custom tools
	// are not wired here: each needs a concrete store/manager implementation
	// (SQLite/Postgres memory rings, a TTS provider manager, a Docker sandbox
	// pool) that this rewrite doesn't carry. See DESIGN.md for the per-feature
	// rationale. Agent loops run with HasMemory: false, matching the
	// standalone CLI bootstrap's existing precedent.

	// Every AgentEvent an agent loop emits is broadcast on the bus as an
	// "agent"-named event wrapping the event struct, matching the shape the
	// gateway's client fan-out and the channel manager both expect.
	onEvent := func(evt agent.AgentEvent) {
		msgBus.Broadcast(bus.Event{Name: protocol.EventAgent, Payload: evt})
	}

	agentRouter.SetResolver(agent.NewConfigResolver(agent.ConfigResolverDeps{
		Config:          cfg,
		ProviderReg:     providerRegistry,
		Bus:             msgBus,
		Sessions:        sessStore,
		Tools:           toolsReg,
		ToolPolicy:      toolPE,
		Skills:          skillsLoader,
		OnEvent:         onEvent,
		InjectionAction: cfg.Gateway.InjectionAction,
		MaxMessageChars: cfg.Gateway.MaxMessageChars,
	}))

	// Eagerly resolve the default agent and every agent in agents.list so
	// startup surfaces config errors immediately instead of on first message.
	if _, err := agentRouter.Get(config.DefaultAgentID); err != nil {
		slog.Error("failed to resolve default agent", "error", err)
		os.Exit(1)
	}
	for agentID := range cfg.Agents.List {
		if agentID == config.DefaultAgentID {
			continue
		}
		if _, err := agentRouter.Get(agentID); err != nil {
			slog.Error("failed to resolve agent", "agent", agentID, "error", err)
		}
	}

	// --- Channels ---
	channelMgr := channels.NewManager(msgBus)

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Channels.Telegram, msgBus, pairingStore)
		if err != nil {
			slog.Error("failed to initialize telegram channel", "error", err)
		} else {
			channelMgr.RegisterChannel("telegram", tg)
			slog.Info("telegram channel enabled")
		}
	}

	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BridgeURL != "" {
		wa, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus, pairingStore)
		if err != nil {
			slog.Error("failed to initialize whatsapp channel", "error", err)
		} else {
			channelMgr.RegisterChannel("whatsapp", wa)
			slog.Info("whatsapp channel enabled")
		}
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		dc, err := discord.New(cfg.Channels.Discord, msgBus, pairingStore)
		if err != nil {
			slog.Error("failed to initialize discord channel", "error", err)
		} else {
			channelMgr.RegisterChannel("discord", dc)
			slog.Info("discord channel enabled")
		}
	}

	// Forward agent events to channels that support streaming/reaction display.
	msgBus.Subscribe("channel-streaming", func(event bus.Event) {
		if event.Name != protocol.EventAgent {
			return
		}
		agentEvent, ok := event.Payload.(agent.AgentEvent)
		if !ok {
			return
		}
		channelMgr.HandleAgentEvent(agentEvent.Type, agentEvent.RunID, agentEvent.Payload)
	})

	// --- Scheduler ---
	sched := scheduler.NewScheduler(scheduler.DefaultLanes(), scheduler.DefaultQueueConfig(), makeSchedulerRunFunc(agentRouter, cfg))
	defer sched.Stop()
	sched.SetTokenEstimateFunc(func(sessionKey string) (int, int) {
		history := sessStore.GetHistory(sessionKey)
		tokens := agent.EstimateTokensWithCalibration(history)
		cw := sessStore.GetContextWindow(sessionKey)
		if cw <= 0 {
			cw = 200000
		}
		return tokens, cw
	})

	cronStore.SetOnJob(makeCronJobHandler(sched, msgBus, cfg))
	if err := cronStore.Start(); err != nil {
		slog.Warn("cron service failed to start", "error", err)
	}

	// --- Gateway server (WebSocket hub for playground/admin clients) ---
	server := gateway.NewServer(cfg, msgBus)
	gateway.NewChatHandlers(sched).Register(server.Router())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if skillsWatcher, err := skills.NewWatcher(skillsLoader); err != nil {
		slog.Warn("skills watcher unavailable", "error", err)
	} else if err := skillsWatcher.Start(ctx); err != nil {
		slog.Warn("skills watcher start failed", "error", err)
	} else {
		defer skillsWatcher.Stop()
	}

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
	}

	go consumeInboundMessages(ctx, msgBus, agentRouter, cfg, sched, channelMgr, threadEngine)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		server.BroadcastEvent(*protocol.NewEvent(protocol.EventShutdown, nil))
		channelMgr.StopAll(context.Background())
		cronStore.Stop()
		cancel()
	}()

	slog.Info("goclaw gateway starting",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"agents", agentRouter.List(),
		"tools", toolsReg.Count(),
		"channels", channelMgr.GetEnabledChannels(),
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}

// resolveCronRetryConfig builds a cron retry policy from config.json's cron
// section, falling back to 3 attempts / 2s base backoff when unset.
func resolveCronRetryConfig(cfg *config.Config) file.RetryConfig {
	maxRetries := cfg.Cron.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := 2 * time.Second
	if d, err := time.ParseDuration(cfg.Cron.RetryBaseDelay); err == nil && d > 0 {
		backoff = d
	}
	return file.RetryConfig{MaxAttempts: maxRetries, Backoff: backoff}
}
