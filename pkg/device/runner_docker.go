package device

import (
	"archive/tar"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// dockerRunner execs into a running container instead of shelling out to a
// local adb binary, letting the same Driver dispatch against a
// containerized test harness in CI without a physical device. Adapted
// from the teacher's docker.Client.ExecCommand.
type dockerRunner struct {
	cli         *client.Client
	containerID string
}

func newDockerRunner(containerID string) (*dockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("device: failed to create docker client: %w", err)
	}
	return &dockerRunner{cli: cli, containerID: containerID}, nil
}

func (r *dockerRunner) Run(ctx context.Context, command string, timeout time.Duration) (string, string, bool, error) {
	return r.RunWithInput(ctx, command, nil, timeout)
}

func (r *dockerRunner) RunWithInput(ctx context.Context, command string, stdin []byte, timeout time.Duration) (string, string, bool, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execID, err := r.cli.ContainerExecCreate(runCtx, r.containerID, types.ExecConfig{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  stdin != nil,
	})
	if err != nil {
		return "", "", false, fmt.Errorf("device: failed to create exec: %w", err)
	}

	resp, err := r.cli.ContainerExecAttach(runCtx, execID.ID, types.ExecStartCheck{})
	if err != nil {
		return "", "", false, fmt.Errorf("device: failed to attach exec: %w", err)
	}
	defer resp.Close()

	if stdin != nil {
		_, _ = resp.Conn.Write(stdin)
		_ = resp.CloseWrite()
	}

	var out, errOut strings.Builder
	_, _ = stdcopy.StdCopy(&out, &errOut, resp.Reader)

	if runCtx.Err() == context.DeadlineExceeded {
		return out.String(), errOut.String(), false, fmt.Errorf("command timed out: %s", command)
	}

	inspect, err := r.cli.ContainerExecInspect(runCtx, execID.ID)
	if err != nil {
		return out.String(), errOut.String(), false, fmt.Errorf("device: failed to inspect exec: %w", err)
	}

	return out.String(), errOut.String(), inspect.ExitCode == 0, nil
}

func (r *dockerRunner) Stream(ctx context.Context, command string) (<-chan string, func(), error) {
	execID, err := r.cli.ContainerExecCreate(ctx, r.containerID, types.ExecConfig{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("device: failed to create exec: %w", err)
	}

	resp, err := r.cli.ContainerExecAttach(ctx, execID.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, nil, fmt.Errorf("device: failed to attach exec: %w", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Reader)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	stop := func() { resp.Close() }
	return lines, stop, nil
}

func (r *dockerRunner) Pull(ctx context.Context, remotePath, localDir string) error {
	reader, _, err := r.cli.CopyFromContainer(ctx, r.containerID, remotePath)
	if err != nil {
		return fmt.Errorf("device: failed to copy from container: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("device: failed to read tar stream: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dest := filepath.Join(localDir, filepath.Base(hdr.Name))
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
}

// newRunner chooses a CommandRunner based on controlBinary: a
// "docker://<container>" prefix selects the Docker exec transport,
// anything else is treated as a local adb-style binary name.
func newRunner(controlBinary string) (CommandRunner, error) {
	if containerID, ok := strings.CutPrefix(controlBinary, "docker://"); ok {
		return newDockerRunner(containerID)
	}
	return newLocalRunner(controlBinary), nil
}
