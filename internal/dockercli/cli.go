package dockercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/warden/internal/mediator"
)

// DefaultTimeout bounds a single docker CLI invocation.
const DefaultTimeout = 30 * time.Second

// CLI executes approved commands against the local docker binary. It
// implements mediator.Executor.
type CLI struct {
	binary  string
	timeout time.Duration
	workDir string
	logger  *logging.Logger
}

// Option configures a CLI.
type Option func(*CLI)

// WithBinary overrides the docker binary path.
func WithBinary(path string) Option {
	return func(c *CLI) { c.binary = path }
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CLI) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithWorkDir sets the working directory, used by compose commands to find
// their project file.
func WithWorkDir(dir string) Option {
	return func(c *CLI) { c.workDir = dir }
}

// New creates a docker CLI executor.
func New(opts ...Option) *CLI {
	c := &CLI{
		binary:  "docker",
		timeout: DefaultTimeout,
		logger:  logging.New().WithComponent("dockercli"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute maps the command to an argv, rescans it for shell markers, and
// runs it directly without a shell. A timeout is reported as a failed
// result, not an error, so the planner sees it like any other tool failure.
func (c *CLI) Execute(ctx context.Context, command string, args map[string]string) (mediator.ExecResult, error) {
	argv, err := Argv(command, args)
	if err != nil {
		return mediator.ExecResult{}, err
	}
	if err := scanArgv(argv); err != nil {
		return mediator.ExecResult{}, err
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, argv...)
	cmd.Dir = c.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	elapsed := time.Since(start)

	c.logger.Debug("docker invocation complete", map[string]interface{}{
		"command":  command,
		"argv":     strings.Join(argv, " "),
		"duration": elapsed.String(),
		"failed":   runErr != nil,
	})

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return mediator.ExecResult{
			Output:  stdout.String(),
			Failed:  true,
			Message: fmt.Sprintf("docker command timed out after %ds", int(timeout.Seconds())),
		}, nil
	}

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			msg = fmt.Sprintf("docker %s failed (exit code %d): %s", command, exitErr.ExitCode(), msg)
		}
		return mediator.ExecResult{
			Output:  stdout.String(),
			Failed:  true,
			Message: msg,
		}, nil
	}

	out := stdout.String()
	return mediator.ExecResult{
		Output: out,
		Empty:  mediator.IsEmptyOutput(out),
	}, nil
}
