package sandbox

// Mode controls which tool calls get routed into a sandboxed container.
type Mode string

const (
	ModeOff     Mode = "off"      // never sandbox, run tools in-process
	ModeNonMain Mode = "non-main" // sandbox everything except the main/root agent
	ModeAll     Mode = "all"      // sandbox every agent's shell/command tools
)

// Access controls how much of the workspace a container can see.
type Access string

const (
	AccessNone Access = "none"
	AccessRO   Access = "ro"
	AccessRW   Access = "rw"
)

// Scope controls container lifetime/reuse granularity.
type Scope string

const (
	ScopeSession Scope = "session" // one container per session key
	ScopeAgent   Scope = "agent"   // one container shared by all sessions of an agent
	ScopeShared  Scope = "shared"  // one container shared tenant-wide
)

// Config is the resolved sandbox configuration for one tenant/agent.
type Config struct {
	Mode            Mode
	Image           string
	WorkspaceAccess Access
	Scope           Scope
	MemoryMB        int
	CPUs            float64
	TimeoutSec      int
	NetworkEnabled  bool
	ReadOnlyRoot    bool
	SetupCommand    string
	Env             map[string]string

	User           string
	TmpfsSizeMB    int
	MaxOutputBytes int

	IdleHours        int
	MaxAgeDays       int
	PruneIntervalMin int
}

// DefaultConfig returns the baseline sandbox configuration: off until a
// deployment opts in, with conservative resource caps once enabled.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeOff,
		Image:            "agentbridge-sandbox:bookworm-slim",
		WorkspaceAccess:  AccessRW,
		Scope:            ScopeSession,
		MemoryMB:         512,
		CPUs:             1.0,
		TimeoutSec:       300,
		NetworkEnabled:   false,
		ReadOnlyRoot:     true,
		User:             "1000:1000",
		MaxOutputBytes:   1 << 20,
		IdleHours:        24,
		MaxAgeDays:       7,
		PruneIntervalMin: 5,
	}
}

// AppliesTo reports whether this mode sandboxes the given agent, based on
// whether it is the tenant's main/root agent.
func (m Mode) AppliesTo(isMainAgent bool) bool {
	switch m {
	case ModeAll:
		return true
	case ModeNonMain:
		return !isMainAgent
	default:
		return false
	}
}
