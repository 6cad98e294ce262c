package agent

// SentinelMode controls how the security pre-check reacts to a detected
// match.
type SentinelMode string

const (
	SentinelOff        SentinelMode = "off"
	SentinelDetectOnly SentinelMode = "detect_only"
	SentinelBlocked    SentinelMode = "blocked"
)

// SentinelVerdict is Sentinel's per-message decision.
type SentinelVerdict struct {
	Matched []string
	Blocked bool
}

// Sentinel is the router's security pre-check, run before any memory write
// so a flagged message never poisons the working ring or episodic store. It
// generalizes InputGuard's single log/warn/block action into the three
// named modes the router needs at this hook point.
type Sentinel struct {
	guard *InputGuard
	mode  SentinelMode
}

// NewSentinel builds a Sentinel in the given mode. A nil guard falls back to
// the base InputGuard pattern set.
func NewSentinel(mode SentinelMode, guard *InputGuard) *Sentinel {
	if guard == nil {
		guard = NewInputGuard()
	}
	return &Sentinel{guard: guard, mode: mode}
}

// Check scans message and applies the mode: "off" never flags, "detect_only"
// reports matches without blocking, "blocked" rejects the message outright
// on any match.
func (s *Sentinel) Check(message string) SentinelVerdict {
	if s.mode == SentinelOff {
		return SentinelVerdict{}
	}
	matches := s.guard.Scan(message)
	return SentinelVerdict{Matched: matches, Blocked: s.mode == SentinelBlocked && len(matches) > 0}
}
