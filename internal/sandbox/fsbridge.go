package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// FsBridge gives filesystem tools (read_file/write_file/list_files/edit_file)
// direct access to one container's /workspace without going through Exec's
// ExecRequest/ExecResponse shell-command shape. It opens its own short-lived
// Docker client rather than sharing Executor's, since it's constructed from
// just a container id (see Handle.ID) at the tool call site.
type FsBridge struct {
	containerID string
	root        string
}

// NewFsBridge builds a bridge into containerID, rooted at root (typically
// "/workspace").
func NewFsBridge(containerID, root string) *FsBridge {
	return &FsBridge{containerID: containerID, root: root}
}

func (b *FsBridge) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.root, path)
}

// ReadFile returns the contents of path inside the container.
func (b *FsBridge) ReadFile(ctx context.Context, path string) (string, error) {
	out, _, code, err := b.exec(ctx, []string{"cat", b.resolve(path)})
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("read %s: exit %d", path, code)
	}
	return out, nil
}

// WriteFile writes content to path inside the container, creating parent
// directories as needed. Content is base64-encoded over the wire so binary
// and multi-line content survive the shell round trip intact.
func (b *FsBridge) WriteFile(ctx context.Context, path, content string) error {
	target := b.resolve(path)
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	script := fmt.Sprintf("mkdir -p %q && echo %s | base64 -d > %q", filepath.Dir(target), encoded, target)
	_, stderr, code, err := b.exec(ctx, []string{"sh", "-c", script})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("write %s: exit %d: %s", path, code, stderr)
	}
	return nil
}

// ListFiles lists entries directly under path inside the container.
func (b *FsBridge) ListFiles(ctx context.Context, path string) ([]string, error) {
	out, stderr, code, err := b.exec(ctx, []string{"ls", "-1A", b.resolve(path)})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("list %s: exit %d: %s", path, code, stderr)
	}
	var entries []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// Remove deletes path inside the container.
func (b *FsBridge) Remove(ctx context.Context, path string) error {
	_, stderr, code, err := b.exec(ctx, []string{"rm", "-rf", b.resolve(path)})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("remove %s: exit %d: %s", path, code, stderr)
	}
	return nil
}

func (b *FsBridge) exec(ctx context.Context, cmd []string) (stdout, stderr string, exitCode int, err error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", "", 0, fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	execID, err := cli.ContainerExecCreate(ctx, b.containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("exec create: %w", err)
	}
	attach, err := cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", "", 0, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, attach.Reader); err != nil && err != io.EOF {
		return "", "", 0, fmt.Errorf("read exec output: %w", err)
	}

	inspect, err := cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return outBuf.String(), errBuf.String(), 0, fmt.Errorf("exec inspect: %w", err)
	}
	return outBuf.String(), errBuf.String(), inspect.ExitCode, nil
}
