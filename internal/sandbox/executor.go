// Package sandbox runs tool commands inside per-tenant Docker containers.
// The container lifecycle (get-or-create → start → exec → rotate) and the
// stdcopy-based stdout/stderr capture are grounded on the teradata-labs/loom
// Docker executor; the scheduler/runtime-strategy/OTel-tracer machinery there
// is replaced with a single in-process container registry keyed by the
// tenant's configured Scope, since there is no distributed scheduling here.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

// ExecRequest is one command to run inside a tenant's sandbox container.
type ExecRequest struct {
	// Key identifies the container to reuse, derived from the sandbox Scope
	// (session key, agent id, or tenant id).
	Key        string
	Command    []string
	Env        map[string]string
	WorkingDir string
	Stdin      []byte
	WorkspaceDir string // host path bind-mounted per WorkspaceAccess, "" to skip
}

// ExecResponse is the result of running a command in a container.
type ExecResponse struct {
	ContainerID      string
	ExitCode         int
	Stdout           string
	Stderr           string
	DurationMS       int64
	ContainerCreated bool
	TimedOut         bool
	OOMKilled        bool
}

type trackedContainer struct {
	id          string
	createdAt   time.Time
	lastUsedAt  time.Time
	execCount   int
}

// Executor manages a pool of per-tenant Docker containers and runs commands
// inside them with timeout and OOM detection.
type Executor struct {
	cfg    Config
	docker *client.Client
	logger *zap.Logger

	mu         sync.Mutex
	containers map[string]*trackedContainer
}

// NewExecutor connects to the Docker daemon and verifies it is reachable.
func NewExecutor(ctx context.Context, cfg Config, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}
	return &Executor{
		cfg:        cfg,
		docker:     cli,
		logger:     logger,
		containers: make(map[string]*trackedContainer),
	}, nil
}

// Close releases the Docker client.
func (e *Executor) Close() error { return e.docker.Close() }

// Execute runs req.Command inside the container identified by req.Key,
// creating or rotating the container as needed, and enforcing the
// configured exec timeout and memory limit.
func (e *Executor) Execute(ctx context.Context, req ExecRequest) (*ExecResponse, error) {
	start := time.Now()
	containerID, created, err := e.getOrCreateContainer(ctx, req.Key, req.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("get or create container: %w", err)
	}

	timeout := time.Duration(e.cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, exitCode, err := e.exec(execCtx, containerID, req.Command, req.Stdin, req.WorkingDir, req.Env)
	resp := &ExecResponse{
		ContainerID:      containerID,
		Stdout:           stdout,
		Stderr:           stderr,
		ExitCode:         exitCode,
		DurationMS:       time.Since(start).Milliseconds(),
		ContainerCreated: created,
	}
	if execCtx.Err() == context.DeadlineExceeded {
		resp.TimedOut = true
		e.logger.Warn("sandbox.exec_timeout", zap.String("container_id", containerID), zap.Duration("timeout", timeout))
	}
	if err != nil {
		return resp, err
	}

	if oom, oomErr := e.wasOOMKilled(ctx, containerID); oomErr == nil && oom {
		resp.OOMKilled = true
		e.logger.Warn("sandbox.oom_killed", zap.String("container_id", containerID))
	}

	e.mu.Lock()
	if tc, ok := e.containers[req.Key]; ok {
		tc.execCount++
		tc.lastUsedAt = time.Now()
	}
	e.mu.Unlock()

	e.maybeRotate(ctx, req.Key)
	return resp, nil
}

// EnsureContainer returns the container id for key, creating it if needed,
// without running a command. Used by callers (e.g. the filesystem bridge)
// that need a container identity before their first Exec.
func (e *Executor) EnsureContainer(ctx context.Context, key, workspaceDir string) (string, error) {
	id, _, err := e.getOrCreateContainer(ctx, key, workspaceDir)
	return id, err
}

func (e *Executor) getOrCreateContainer(ctx context.Context, key, workspaceDir string) (string, bool, error) {
	e.mu.Lock()
	if tc, ok := e.containers[key]; ok {
		e.mu.Unlock()
		return tc.id, false, nil
	}
	e.mu.Unlock()

	id, err := e.createContainer(ctx, workspaceDir)
	if err != nil {
		return "", false, err
	}

	e.mu.Lock()
	e.containers[key] = &trackedContainer{id: id, createdAt: time.Now(), lastUsedAt: time.Now()}
	e.mu.Unlock()
	return id, true, nil
}

func (e *Executor) createContainer(ctx context.Context, workspaceDir string) (string, error) {
	var mounts []mount.Mount
	if workspaceDir != "" && e.cfg.WorkspaceAccess != AccessNone {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   workspaceDir,
			Target:   "/workspace",
			ReadOnly: e.cfg.WorkspaceAccess == AccessRO,
		})
	}

	var envVars []string
	for k, v := range e.cfg.Env {
		envVars = append(envVars, k+"="+v)
	}

	tmpfs := map[string]string{}
	if e.cfg.TmpfsSizeMB > 0 {
		tmpfs["/tmp"] = fmt.Sprintf("size=%dm", e.cfg.TmpfsSizeMB)
	}

	containerCfg := &container.Config{
		Image:      e.cfg.Image,
		Cmd:        []string{"sleep", "infinity"},
		Env:        envVars,
		WorkingDir: "/workspace",
		User:       e.cfg.User,
	}
	hostCfg := &container.HostConfig{
		Mounts:         mounts,
		ReadonlyRootfs: e.cfg.ReadOnlyRoot,
		Tmpfs:          tmpfs,
		NetworkMode:    container.NetworkMode(map[bool]string{true: "bridge", false: "none"}[e.cfg.NetworkEnabled]),
		Resources: container.Resources{
			Memory:   int64(e.cfg.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(e.cfg.CPUs * 1e9),
		},
	}

	resp, err := e.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}
	if err := e.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("container start: %w", err)
	}

	if e.cfg.SetupCommand != "" {
		if _, _, _, err := e.exec(ctx, resp.ID, []string{"/bin/sh", "-c", e.cfg.SetupCommand}, nil, "", nil); err != nil {
			e.logger.Warn("sandbox.setup_command_failed", zap.String("container_id", resp.ID), zap.Error(err))
		}
	}
	return resp.ID, nil
}

func (e *Executor) exec(ctx context.Context, containerID string, cmd []string, stdin []byte, workdir string, env map[string]string) (string, string, int, error) {
	var envVars []string
	for k, v := range env {
		envVars = append(envVars, k+"="+v)
	}
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		Env:          envVars,
		WorkingDir:   workdir,
		AttachStdin:  len(stdin) > 0,
		AttachStdout: true,
		AttachStderr: true,
	}
	execID, err := e.docker.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return "", "", 0, fmt.Errorf("exec create: %w", err)
	}
	attach, err := e.docker.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", "", 0, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	if len(stdin) > 0 {
		if _, err := attach.Conn.Write(stdin); err != nil {
			return "", "", 0, fmt.Errorf("write stdin: %w", err)
		}
		attach.CloseWrite()
	}

	maxBytes := int64(e.cfg.MaxOutputBytes)
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	limitedOut := &limitedWriter{w: &stdoutBuf, limit: maxBytes}
	limitedErr := &limitedWriter{w: &stderrBuf, limit: maxBytes}
	if _, err := stdcopy.StdCopy(limitedOut, limitedErr, attach.Reader); err != nil && err != io.EOF {
		return "", "", 0, fmt.Errorf("read exec output: %w", err)
	}

	inspect, err := e.docker.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return stdoutBuf.String(), stderrBuf.String(), 0, fmt.Errorf("exec inspect: %w", err)
	}
	return stdoutBuf.String(), stderrBuf.String(), inspect.ExitCode, nil
}

func (e *Executor) wasOOMKilled(ctx context.Context, containerID string) (bool, error) {
	inspect, err := e.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, err
	}
	return inspect.State != nil && inspect.State.OOMKilled, nil
}

// maybeRotate removes and forgets a tracked container once it exceeds the
// configured idle/age thresholds, so the next Execute recreates it fresh.
func (e *Executor) maybeRotate(ctx context.Context, key string) {
	e.mu.Lock()
	tc, ok := e.containers[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	idleLimit := time.Duration(e.cfg.IdleHours) * time.Hour
	ageLimit := time.Duration(e.cfg.MaxAgeDays) * 24 * time.Hour
	needsRotation := (idleLimit > 0 && time.Since(tc.lastUsedAt) >= idleLimit) ||
		(ageLimit > 0 && time.Since(tc.createdAt) >= ageLimit)
	if !needsRotation {
		e.mu.Unlock()
		return
	}
	id := tc.id
	delete(e.containers, key)
	e.mu.Unlock()

	e.logger.Info("sandbox.rotating_container", zap.String("key", key), zap.String("container_id", id))
	timeout := 10
	e.docker.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
	e.docker.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// PruneIdle removes any tracked container that exceeds idle/age limits,
// independent of a fresh Execute call. Intended to be run on a ticker by the
// cron scheduler.
func (e *Executor) PruneIdle(ctx context.Context) int {
	e.mu.Lock()
	keys := make([]string, 0, len(e.containers))
	for k := range e.containers {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	pruned := 0
	for _, k := range keys {
		before := e.containerCount()
		e.maybeRotate(ctx, k)
		if e.containerCount() < before {
			pruned++
		}
	}
	return pruned
}

func (e *Executor) containerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.containers)
}

type limitedWriter struct {
	w      io.Writer
	limit  int64
	wrote  int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.wrote >= lw.limit {
		return len(p), nil // silently drop past the cap, exec still completes
	}
	remaining := lw.limit - lw.wrote
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lw.w.Write(p)
	lw.wrote += int64(n)
	return len(p), err
}
