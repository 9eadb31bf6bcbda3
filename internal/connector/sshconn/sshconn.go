// Package sshconn provides a connector for executing commands on remote
// hosts over SSH, with file retrieval over SFTP.
package sshconn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/eugenetaranov/fleetgrep/internal/connector"
)

// DefaultTimeout bounds connection establishment, the auth handshake, and
// remote command execution when no timeout is configured.
const DefaultTimeout = 120 * time.Second

// Connector executes commands on a remote host over SSH. Authentication is
// password-only, by requirement: no key files, no agent fallback, no
// interactive prompts.
type Connector struct {
	addr     string
	user     string
	password string
	timeout  time.Duration
	hostKey  ssh.HostKeyCallback

	client *ssh.Client
	sftpc  *sftp.Client
}

// Option configures the SSH connector.
type Option func(*Connector)

// WithTimeout sets the timeout applied to dialing, the handshake, and each
// executed command.
func WithTimeout(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHostKeyCallback sets the host key verification policy. A policy is
// required: Connect fails if none was configured. Use AcceptAllHostKeys to
// opt in to the insecure accept-and-continue behavior explicitly.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(c *Connector) {
		c.hostKey = cb
	}
}

// New creates an SSH connector for addr ("host:port").
func New(addr, user, password string, opts ...Option) *Connector {
	c := &Connector{
		addr:     addr,
		user:     user,
		password: password,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect dials the host and completes the SSH handshake. The configured
// timeout covers TCP connect, protocol banner exchange, and authentication.
func (c *Connector) Connect(ctx context.Context) error {
	if c.hostKey == nil {
		return fmt.Errorf("no host key policy configured for %s", c.addr)
	}

	cfg := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.Password(c.password)},
		HostKeyCallback: c.hostKey,
		Timeout:         c.timeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(dialCtx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.addr, cfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", c.addr, err)
	}

	c.client = ssh.NewClient(sshConn, chans, reqs)
	return nil
}

// Execute runs cmd in a fresh session and returns stdout, stderr, and the
// exit status. Session.Run only reports the exit status after both output
// streams are fully drained, so the result never truncates output. A
// non-zero remote exit status is returned in Result, not as an error.
func (c *Connector) Execute(ctx context.Context, cmd string) (*connector.Result, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected to %s", c.addr)
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", c.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err = <-done:
	case <-runCtx.Done():
		// Tear down the channel so the remote command does not linger.
		session.Close()
		<-done
		return nil, fmt.Errorf("command timed out on %s: %w", c.addr, runCtx.Err())
	}

	result := &connector.Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			return nil, fmt.Errorf("failed to execute command on %s: %w", c.addr, err)
		}
	}

	return result, nil
}

// Download copies the remote file at src to dst over SFTP. The SFTP
// subsystem is opened lazily on first use and shared for the connector's
// lifetime.
func (c *Connector) Download(ctx context.Context, src string, dst io.Writer) error {
	if c.client == nil {
		return fmt.Errorf("not connected to %s", c.addr)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if c.sftpc == nil {
		sftpc, err := sftp.NewClient(c.client)
		if err != nil {
			return fmt.Errorf("failed to open sftp on %s: %w", c.addr, err)
		}
		c.sftpc = sftpc
	}

	f, err := c.sftpc.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	return nil
}

// Close shuts down the SFTP and SSH connections. It is idempotent and
// swallows close errors.
func (c *Connector) Close() error {
	if c.sftpc != nil {
		_ = c.sftpc.Close()
		c.sftpc = nil
	}
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
	return nil
}

// String returns a description of the connection.
func (c *Connector) String() string {
	return fmt.Sprintf("ssh://%s@%s", c.user, c.addr)
}

// Ensure Connector implements the connector.Connector interface.
var _ connector.Connector = (*Connector)(nil)
