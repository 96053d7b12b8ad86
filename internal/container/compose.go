// Package container drives the companion UI container through the docker
// compose CLI. The compose file owns image, ports and volumes; this package
// only sequences up/down and reports state, checking exit codes the same
// way the supervisor checks native processes.
package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts command execution for tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Compose manages one compose project.
type Compose struct {
	File   string // compose file path
	runner Runner
}

func New(file string) *Compose {
	return &Compose{File: file, runner: execRunner{}}
}

// NewWithRunner is used by tests to substitute command execution.
func NewWithRunner(file string, r Runner) *Compose {
	return &Compose{File: file, runner: r}
}

// Available reports whether a usable container runtime is present: the
// docker CLI on PATH and a reachable daemon.
func (c *Compose) Available(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	_, err := c.runner.Run(ctx, "docker", "info")
	return err == nil
}

// Up starts the project detached.
func (c *Compose) Up(ctx context.Context) error {
	out, err := c.runner.Run(ctx, "docker", "compose", "-f", c.File, "up", "-d")
	if err != nil {
		return fmt.Errorf("docker compose up: %w: %s", err, firstLines(out, 5))
	}
	return nil
}

// Down stops and removes the project's containers. An already-down project
// is not an error.
func (c *Compose) Down(ctx context.Context) error {
	out, err := c.runner.Run(ctx, "docker", "compose", "-f", c.File, "down")
	if err != nil {
		return fmt.Errorf("docker compose down: %w: %s", err, firstLines(out, 5))
	}
	return nil
}

// Running reports whether the named compose service has a running container.
func (c *Compose) Running(ctx context.Context, service string) bool {
	out, err := c.runner.Run(ctx, "docker", "compose", "-f", c.File,
		"ps", "--status", "running", "--services")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == service {
			return true
		}
	}
	return false
}

func firstLines(b []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
