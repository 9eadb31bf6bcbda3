// Package docker provides a connector for searching inside running Docker
// containers via the docker CLI.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/eugenetaranov/fleetgrep/internal/connector"
)

// Connector executes commands inside a Docker container.
type Connector struct {
	container string
	user      string
}

// Option configures the Docker connector.
type Option func(*Connector)

// WithUser sets the user for command execution inside the container.
func WithUser(user string) Option {
	return func(c *Connector) {
		c.user = user
	}
}

// New creates a Docker connector for the specified container.
func New(container string, opts ...Option) *Connector {
	c := &Connector{container: container}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect verifies the docker CLI is available and the container is running.
func (c *Connector) Connect(ctx context.Context) error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker command not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "docker", "inspect", "-f", "{{.State.Running}}", c.container)
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("container '%s' not found or not accessible: %w", c.container, err)
	}

	if strings.TrimSpace(string(output)) != "true" {
		return fmt.Errorf("container '%s' is not running", c.container)
	}

	return nil
}

// Execute runs a command inside the container. A non-zero exit status is
// reported in the Result, not as an error.
func (c *Connector) Execute(ctx context.Context, cmd string) (*connector.Result, error) {
	args := []string{"exec"}
	if c.user != "" {
		args = append(args, "-u", c.user)
	}
	args = append(args, c.container, "/bin/sh", "-c", cmd)

	execCmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	result := &connector.Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to execute command in container: %w", err)
		}
	}

	return result, nil
}

// Download copies a file out of the container into dst. Docker cp does not
// write to stdout, so the copy goes through a temp file.
func (c *Connector) Download(ctx context.Context, src string, dst io.Writer) error {
	tmpFile, err := os.CreateTemp("", "fleetgrep-download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, "docker", "cp", fmt.Sprintf("%s:%s", c.container, src), tmpPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to copy file from container: %s: %w", string(output), err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to read downloaded file: %w", err)
	}

	return nil
}

// Close is a no-op for Docker connections.
func (c *Connector) Close() error {
	return nil
}

// String returns a description of the connection.
func (c *Connector) String() string {
	if c.user != "" {
		return fmt.Sprintf("docker://%s@%s", c.user, c.container)
	}
	return fmt.Sprintf("docker://%s", c.container)
}

// Ensure Connector implements the connector.Connector interface.
var _ connector.Connector = (*Connector)(nil)
