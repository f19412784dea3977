// Package session owns the authenticated interactive shell a probe runs in.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/melbahja/goph"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/vertti/sshprobe/pkg/prompt"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StatePromptSynced
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StatePromptSynced:
		return "prompt-synced"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Manager opens sessions. The zero value is usable.
type Manager struct {
	Logger *zap.Logger
}

// NewManager returns a Manager that logs to logger (nil discards).
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{Logger: logger}
}

func (m *Manager) logger() *zap.Logger {
	if m == nil || m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Connect dials creds.Host, authenticates with the password, starts a PTY
// shell and installs a fresh prompt token before returning, so banners and
// MOTD never reach the first command's output. Failures to dial or
// authenticate are returned as *ConnectionError; prompt failures as the
// prompt package's errors. Nothing is retried.
func (m *Manager) Connect(ctx context.Context, creds Credentials, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	addr := creds.Addr()
	log := m.logger().With(zap.String("addr", addr), zap.String("user", creds.Username))

	s := &Session{addr: addr, state: StateConnecting, logger: log}

	callback, err := hostKeyCallback(opts.HostKeyPolicy, opts.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("host key policy %s: %w", opts.HostKeyPolicy, err)
	}

	log.Debug("connecting", zap.String("host_key_policy", string(opts.HostKeyPolicy)))
	client, err := dial(ctx, &goph.Config{
		User:     creds.Username,
		Addr:     creds.Host,
		Port:     creds.port(),
		Auth:     passwordAuth(creds.Password),
		Timeout:  opts.ConnectTimeout,
		Callback: callback,
	})
	if err != nil {
		return nil, classify(addr, err)
	}
	s.client = client
	s.setState(StateAuthenticated)
	log.Debug("authenticated")

	if err := s.startShell(opts); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.prompter = prompt.New(s.stdout, s.stdin,
		prompt.WithTimeout(opts.PromptTimeout),
		prompt.WithLogger(log))
	if err := s.prompter.Install(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.setState(StatePromptSynced)
	log.Info("session ready", zap.Stringer("token", s.prompter.Token()))
	return s, nil
}

// passwordAuth offers the password both as "password" and as the answer to
// every keyboard-interactive question. No key-based method is offered.
func passwordAuth(password string) goph.Auth {
	return goph.Auth{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}
}

type dialResult struct {
	client *goph.Client
	err    error
}

// dial runs goph.NewConn but gives up when ctx ends; the handshake itself
// has no deadline in x/crypto/ssh.
func dial(ctx context.Context, cfg *goph.Config) (*goph.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan dialResult, 1)
	go func() {
		c, err := goph.NewConn(cfg)
		done <- dialResult{client: c, err: err}
	}()

	select {
	case r := <-done:
		return r.client, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = r.client.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Session is an interactive shell with a known prompt. It runs one command
// at a time and must be closed by its owner.
type Session struct {
	addr     string
	client   *goph.Client
	shell    *ssh.Session
	stdin    io.WriteCloser
	stdout   io.Reader
	prompter *prompt.Synchronizer
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	closeOnce sync.Once
	closeErr  error
}

func (s *Session) startShell(opts Options) error {
	shell, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	s.shell = shell

	if s.stdin, err = shell.StdinPipe(); err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if s.stdout, err = shell.StdoutPipe(); err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := shell.RequestPty(opts.Term, opts.Rows, opts.Columns, modes); err != nil {
		return fmt.Errorf("request pty: %w", err)
	}
	if err := shell.Shell(); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}
	return nil
}

// Run sends cmd and returns the raw terminal output up to the next prompt.
// The first line of the output is the shell's echo of cmd.
func (s *Session) Run(ctx context.Context, cmd string) ([]byte, error) {
	if st := s.State(); st != StatePromptSynced {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, st)
	}
	return s.prompter.SendAndWait(ctx, cmd)
}

// Addr returns the remote host:port.
func (s *Session) Addr() string {
	return s.addr
}

// Token returns the installed prompt token, or "" before synchronization.
func (s *Session) Token() prompt.Token {
	if s.prompter == nil {
		return ""
	}
	return s.prompter.Token()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Close tears the session down. Only the first call does any work; later
// calls return the same result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.prompter != nil {
			s.prompter.Close()
		}
		var errs []error
		if s.shell != nil {
			if err := s.shell.Close(); err != nil && !errors.Is(err, io.EOF) {
				errs = append(errs, fmt.Errorf("close shell: %w", err))
			}
		}
		if s.client != nil {
			if err := s.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
		s.setState(StateClosed)
		s.logger.Debug("session closed")
	})
	return s.closeErr
}
