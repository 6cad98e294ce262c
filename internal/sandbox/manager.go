package sandbox

import (
	"context"
	"errors"
)

// ErrSandboxDisabled is returned by Manager.Get when sandboxing is configured
// off; callers fall back to host execution.
var ErrSandboxDisabled = errors.New("sandbox: disabled")

// ExecResult is the outcome of running a command inside a sandbox handle.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Handle is a live sandbox session a tool can run commands against.
type Handle interface {
	Exec(ctx context.Context, cmd []string, workdir string) (ExecResult, error)
	// ID returns the backing container id, for building an FsBridge.
	ID() string
}

// Manager hands out sandbox handles keyed by session/agent/tenant, per Config.Scope.
type Manager interface {
	Get(ctx context.Context, key, hostWorkdir string) (Handle, error)
}

// manager adapts Executor to the Manager/Handle interface tools depend on.
type manager struct {
	exec *Executor
	cfg  Config
}

// NewManager wraps an Executor as a Manager, honoring cfg.Mode=off by
// always returning ErrSandboxDisabled.
func NewManager(exec *Executor, cfg Config) Manager {
	return &manager{exec: exec, cfg: cfg}
}

func (m *manager) Get(ctx context.Context, key, hostWorkdir string) (Handle, error) {
	if m.cfg.Mode == ModeOff {
		return nil, ErrSandboxDisabled
	}
	id, err := m.exec.EnsureContainer(ctx, key, hostWorkdir)
	if err != nil {
		return nil, err
	}
	return &handle{mgr: m, key: key, hostWorkdir: hostWorkdir, id: id}, nil
}

type handle struct {
	mgr         *manager
	key         string
	hostWorkdir string
	id          string
}

func (h *handle) ID() string { return h.id }

func (h *handle) Exec(ctx context.Context, cmd []string, workdir string) (ExecResult, error) {
	resp, err := h.mgr.exec.Execute(ctx, ExecRequest{
		Key:          h.key,
		Command:      cmd,
		WorkingDir:   workdir,
		WorkspaceDir: h.hostWorkdir,
	})
	if err != nil {
		return ExecResult{}, err
	}
	result := ExecResult{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.TimedOut {
		result.Stderr += "\n[sandbox] command timed out"
		result.ExitCode = 124
	}
	if resp.OOMKilled {
		result.Stderr += "\n[sandbox] container killed (out of memory)"
		result.ExitCode = 137
	}
	return result, nil
}
