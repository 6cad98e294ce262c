// Package scheduler runs agent turns through a small set of concurrency
// lanes so that, e.g., cron-triggered runs can never starve interactive
// chat runs and a single runaway session can't monopolize a lane.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/agentbridge/internal/agent"
)

// Lane names a concurrency pool. Every Schedule call picks one.
type Lane string

const (
	LaneMain     Lane = "main"     // interactive inbound chat turns
	LaneCron     Lane = "cron"     // scheduled/cron-triggered runs
	LaneSubagent Lane = "subagent" // subagent announce callbacks
	LaneDelegate Lane = "delegate" // delegate/handoff/teammate announce callbacks
)

// LaneConfig bounds one lane's global concurrency and pending-request queue.
type LaneConfig struct {
	Lane          Lane
	MaxConcurrent int
	QueueSize     int
}

// DefaultLanes returns sensible concurrency bounds per lane: interactive
// chat (main) gets the most headroom since it's user-facing latency;
// background lanes are capped lower so they can't crowd it out.
func DefaultLanes() []LaneConfig {
	return []LaneConfig{
		{Lane: LaneMain, MaxConcurrent: 8, QueueSize: 128},
		{Lane: LaneCron, MaxConcurrent: 2, QueueSize: 32},
		{Lane: LaneSubagent, MaxConcurrent: 4, QueueSize: 64},
		{Lane: LaneDelegate, MaxConcurrent: 4, QueueSize: 64},
	}
}

// QueueConfig bounds the default per-session queue depth for lanes/sessions
// that don't specify one explicitly.
type QueueConfig struct {
	DefaultQueueSize int
}

// DefaultQueueConfig returns the scheduler's fallback queue depth.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{DefaultQueueSize: 64}
}

// ScheduleOpts customizes a single Schedule call, e.g. raising per-session
// concurrency for group chats where multiple members can converse at once.
type ScheduleOpts struct {
	MaxConcurrent int // 0 = lane default of 1 concurrent run per session
}

// RunFunc executes one agent turn. Supplied by the caller (resolves the
// agent from the request and invokes its Loop).
type RunFunc func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)

// Outcome is delivered on the channel returned by Schedule/ScheduleWithOpts.
type Outcome struct {
	Result *agent.RunResult
	Err    error
}

// TokenEstimateFunc reports a session's estimated prompt tokens and its
// agent's context window, used to throttle concurrency before a session
// gets close to needing mid-run summarization.
type TokenEstimateFunc func(sessionKey string) (tokens int, contextWindow int)

type laneState struct {
	sem chan struct{}
}

// activeRun tracks one in-flight run for cancellation (/stop, /stopall).
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler dispatches agent runs through named concurrency lanes, with a
// per-session concurrency cap layered on top of each lane's global cap.
type Scheduler struct {
	run      RunFunc
	queueCfg QueueConfig

	mu    sync.Mutex
	lanes map[Lane]*laneState

	sessionMu  sync.Mutex
	sessionSem map[string]chan struct{}   // sessionKey -> per-session concurrency gate
	sessionRun map[string][]*activeRun    // sessionKey -> active runs, oldest first

	tokenEstimate TokenEstimateFunc
}

// NewScheduler builds a Scheduler with the given lane bounds and run function.
func NewScheduler(lanes []LaneConfig, queueCfg QueueConfig, run RunFunc) *Scheduler {
	s := &Scheduler{
		run:        run,
		queueCfg:   queueCfg,
		lanes:      make(map[Lane]*laneState, len(lanes)),
		sessionSem: make(map[string]chan struct{}),
		sessionRun: make(map[string][]*activeRun),
	}
	for _, lc := range lanes {
		max := lc.MaxConcurrent
		if max <= 0 {
			max = 1
		}
		s.lanes[lc.Lane] = &laneState{sem: make(chan struct{}, max)}
	}
	return s
}

// SetTokenEstimateFunc installs the adaptive-throttle callback. When a
// session's estimated prompt tokens exceed 85% of its agent's context
// window, Schedule forces that session down to single-flight regardless of
// the requested MaxConcurrent, to avoid racing a mid-flight summarization.
func (s *Scheduler) SetTokenEstimateFunc(fn TokenEstimateFunc) {
	s.tokenEstimate = fn
}

// Schedule runs req on the named lane with default (single-flight per
// session) concurrency.
func (s *Scheduler) Schedule(ctx context.Context, lane Lane, req agent.RunRequest) <-chan Outcome {
	return s.ScheduleWithOpts(ctx, lane, req, ScheduleOpts{MaxConcurrent: 1})
}

// ScheduleWithOpts runs req on the named lane, gating per-session
// concurrency at opts.MaxConcurrent (0 defaults to 1) in addition to the
// lane's own global cap.
func (s *Scheduler) ScheduleWithOpts(ctx context.Context, lane Lane, req agent.RunRequest, opts ScheduleOpts) <-chan Outcome {
	out := make(chan Outcome, 1)

	s.mu.Lock()
	ls, ok := s.lanes[lane]
	s.mu.Unlock()
	if !ok {
		out <- Outcome{Err: &UnknownLaneError{Lane: lane}}
		close(out)
		return out
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if s.tokenEstimate != nil {
		if tokens, window := s.tokenEstimate(req.SessionKey); window > 0 && float64(tokens)/float64(window) > 0.85 {
			maxConcurrent = 1
		}
	}
	sem := s.sessionGate(req.SessionKey, maxConcurrent)

	runCtx, cancel := context.WithCancel(ctx)
	run := &activeRun{cancel: cancel, done: make(chan struct{})}
	s.trackRun(req.SessionKey, run)

	go func() {
		defer close(out)
		defer s.untrackRun(req.SessionKey, run)
		defer close(run.done)

		select {
		case ls.sem <- struct{}{}:
			defer func() { <-ls.sem }()
		case <-runCtx.Done():
			out <- Outcome{Err: runCtx.Err()}
			return
		}
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-runCtx.Done():
			out <- Outcome{Err: runCtx.Err()}
			return
		}

		result, err := s.run(runCtx, req)
		out <- Outcome{Result: result, Err: err}
	}()

	return out
}

func (s *Scheduler) sessionGate(sessionKey string, maxConcurrent int) chan struct{} {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	sem, ok := s.sessionSem[sessionKey]
	if !ok || cap(sem) != maxConcurrent {
		sem = make(chan struct{}, maxConcurrent)
		s.sessionSem[sessionKey] = sem
	}
	return sem
}

func (s *Scheduler) trackRun(sessionKey string, run *activeRun) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessionRun[sessionKey] = append(s.sessionRun[sessionKey], run)
}

func (s *Scheduler) untrackRun(sessionKey string, run *activeRun) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	runs := s.sessionRun[sessionKey]
	for i, r := range runs {
		if r == run {
			s.sessionRun[sessionKey] = append(runs[:i], runs[i+1:]...)
			break
		}
	}
	if len(s.sessionRun[sessionKey]) == 0 {
		delete(s.sessionRun, sessionKey)
	}
}

// CancelOneSession cancels the oldest active run for sessionKey ("/stop").
// Reports whether a run was found to cancel.
func (s *Scheduler) CancelOneSession(sessionKey string) bool {
	s.sessionMu.Lock()
	runs := s.sessionRun[sessionKey]
	if len(runs) == 0 {
		s.sessionMu.Unlock()
		return false
	}
	oldest := runs[0]
	s.sessionMu.Unlock()
	oldest.cancel()
	return true
}

// CancelSession cancels every active run for sessionKey ("/stopall").
// Reports whether any run was found to cancel.
func (s *Scheduler) CancelSession(sessionKey string) bool {
	s.sessionMu.Lock()
	runs := append([]*activeRun(nil), s.sessionRun[sessionKey]...)
	s.sessionMu.Unlock()
	for _, r := range runs {
		r.cancel()
	}
	return len(runs) > 0
}

// Stop cancels every tracked run. Safe to call during shutdown.
func (s *Scheduler) Stop() {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	for key, runs := range s.sessionRun {
		for _, r := range runs {
			r.cancel()
		}
		slog.Debug("scheduler: cancelled session on shutdown", "session", key, "runs", len(runs))
	}
}

// UnknownLaneError is returned when Schedule names a lane the Scheduler
// wasn't configured with.
type UnknownLaneError struct {
	Lane Lane
}

func (e *UnknownLaneError) Error() string {
	return "scheduler: unknown lane " + string(e.Lane)
}
