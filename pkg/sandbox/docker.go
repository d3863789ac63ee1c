package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

const stdinFileName = ".stdin"

// DockerConfig groups the Docker runner settings.
type DockerConfig struct {
	Host          string
	Image         string
	MemoryLimitMB int64
	CPUShares     int64
	WorkingDir    string
	Logger        zerolog.Logger
}

// DockerRunner runs each command in a throwaway container with the workspace
// bind-mounted at WorkingDir and networking disabled.
type DockerRunner struct {
	client *client.Client
	cfg    DockerConfig
	logger zerolog.Logger
}

// NewDockerRunner constructs a Docker backed runner.
func NewDockerRunner(cfg DockerConfig) (*DockerRunner, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.Image == "" {
		cfg.Image = "gcc:13"
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "/workspace"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &DockerRunner{client: cli, cfg: cfg, logger: logger}, nil
}

// Run executes cmd inside a fresh container. Stdin is staged as a file in the
// workspace and redirected by the container shell.
func (r *DockerRunner) Run(parent context.Context, cmd Command) (Output, error) {
	if cmd.Dir == "" {
		return Output{}, errors.New("docker runner requires a workspace directory")
	}

	ctx := parent
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, cmd.Timeout)
		defer cancel()
	}

	if err := os.WriteFile(filepath.Join(cmd.Dir, stdinFileName), []byte(cmd.Stdin), 0o600); err != nil {
		return Output{}, fmt.Errorf("stage stdin: %w", err)
	}

	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:    r.cfg.MemoryLimitMB * 1024 * 1024,
			CPUShares: r.cfg.CPUShares,
		},
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: cmd.Dir,
			Target: r.cfg.WorkingDir,
		}},
	}

	config := &container.Config{
		Image:           r.cfg.Image,
		Cmd:             []string{"sh", "-c", shellLine(cmd)},
		WorkingDir:      r.cfg.WorkingDir,
		AttachStdout:    true,
		AttachStderr:    true,
		NetworkDisabled: true,
	}

	start := time.Now()
	out := Output{}

	resp, err := r.client.ContainerCreate(ctx, config, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return out, fmt.Errorf("container create: %w", err)
	}

	containerID := resp.ID
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
		}
	}()

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return out, fmt.Errorf("container start: %w", err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNextExit)

	var waitErr error
	select {
	case err := <-errCh:
		waitErr = err
	case status := <-statusCh:
		out.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	out.Duration = time.Since(start)

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			out.TimedOut = true
			out.ExitCode = -1
			killCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.client.ContainerKill(killCtx, containerID, "KILL"); err != nil {
				r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill timed out container")
			}
			return out, nil
		}
		return out, fmt.Errorf("container wait: %w", waitErr)
	}

	logs, err := r.client.ContainerLogs(parent, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
		return out, nil
	}
	defer logs.Close()

	stdout, stderr, err := splitDockerLogs(logs)
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
		return out, nil
	}
	out.Stdout = stdout
	out.Stderr = stderr

	// The shell reports a missing binary as 127.
	if out.ExitCode == 127 && strings.Contains(out.Stderr, "not found") && cmd.Path != "" && !strings.HasPrefix(cmd.Path, "./") {
		return out, fmt.Errorf("%s: %w", cmd.Path, ErrCompilerNotFound)
	}

	return out, nil
}

// Close shuts down the runner's Docker client.
func (r *DockerRunner) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func shellLine(cmd Command) string {
	parts := make([]string, 0, len(cmd.Args)+1)
	parts = append(parts, shellQuote(cmd.Path))
	for _, arg := range cmd.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ") + " < " + stdinFileName
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func splitDockerLogs(reader io.Reader) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, reader); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}
