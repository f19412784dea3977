// Package prompt drives an interactive shell over a byte stream: it installs
// a unique prompt token, sends commands and waits until the shell is idle.
package prompt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertti/sshprobe/pkg/terminal"
)

// DefaultTimeout bounds a single wait for the prompt token.
const DefaultTimeout = 30 * time.Second

const readSize = 4096

type chunk struct {
	data []byte
	err  error
}

// Synchronizer sends lines to a shell and reads its output until the prompt
// token comes back. It is not safe for concurrent use; one command at a time.
type Synchronizer struct {
	w       io.Writer
	chunks  chan chunk
	done    chan struct{}
	once    sync.Once
	token   Token
	timeout time.Duration
	logger  *zap.Logger
	pending []byte
	readErr error
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithTimeout sets the bound for each wait. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithToken overrides the generated token.
func WithToken(t Token) Option {
	return func(s *Synchronizer) {
		s.token = t
	}
}

// WithLogger sets the logger used for raw stream tracing.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New starts reading r in the background and returns a Synchronizer that
// writes commands to w. Call Close to stop the reader.
func New(r io.Reader, w io.Writer, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		w:       w,
		chunks:  make(chan chunk, 16),
		done:    make(chan struct{}),
		token:   NewToken(),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	go s.pump(r)
	return s
}

// Token returns the prompt token this synchronizer waits for.
func (s *Synchronizer) Token() Token {
	return s.token
}

// Install sets the token as the shell prompt and waits until the shell shows
// it. Everything before that, banners and MOTD included, is discarded.
func (s *Synchronizer) Install(ctx context.Context) error {
	discarded, err := s.SendAndWait(ctx, s.token.SetCommand())
	if err != nil {
		return fmt.Errorf("install prompt: %w", err)
	}
	s.logger.Debug("prompt installed",
		zap.Stringer("token", s.token),
		zap.Int("discarded_bytes", len(discarded)))
	return nil
}

// SendAndWait writes cmd followed by a newline and returns the raw output
// received before the next prompt token. The echoed command is the first
// line of the returned bytes.
func (s *Synchronizer) SendAndWait(ctx context.Context, cmd string) ([]byte, error) {
	if _, err := io.WriteString(s.w, cmd+"\n"); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}
	s.logger.Debug("command sent", zap.String("command", cmd))
	return s.waitForToken(ctx)
}

// Close stops the background reader. It does not close the stream itself.
func (s *Synchronizer) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Synchronizer) pump(r io.Reader) {
	buf := make([]byte, readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c := chunk{data: append([]byte(nil), buf[:n]...)}
			select {
			case s.chunks <- c:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case s.chunks <- chunk{err: err}:
			case <-s.done:
			}
			return
		}
	}
}

// waitForToken accumulates chunks until the cleaned buffer ends with the
// token. The match is an anchored suffix test, re-run on every read, so a
// token split across reads is still found and a token-like string inside
// command output is not.
func (s *Synchronizer) waitForToken(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	buf := s.pending
	s.pending = nil
	if capture, ok := s.cut(buf); ok {
		return capture, nil
	}

	for {
		if s.readErr != nil {
			return nil, &StreamError{Captured: buf, Err: s.readErr}
		}
		select {
		case <-timer.C:
			return nil, &TimeoutError{Timeout: s.timeout, Captured: buf}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{Timeout: s.timeout, Captured: buf}
			}
			return nil, &StreamError{Captured: buf, Err: ctx.Err()}
		case <-s.done:
			return nil, &StreamError{Captured: buf, Err: ErrClosed}
		case c := <-s.chunks:
			if c.err != nil {
				s.readErr = c.err
				if errors.Is(c.err, io.EOF) {
					s.readErr = io.ErrUnexpectedEOF
				}
				continue
			}
			s.logger.Debug("received", zap.ByteString("raw", c.data))
			buf = append(buf, c.data...)
			if capture, ok := s.cut(buf); ok {
				return capture, nil
			}
		}
	}
}

// cut reports whether buf ends with the token and, if so, returns the bytes
// before it. The raw cut point is the last raw token occurrence followed by
// nothing but control sequences; bytes after the token there (trailing
// control sequences) are kept for the next wait. When the raw stream has no
// such occurrence the cleaned capture is returned.
func (s *Synchronizer) cut(buf []byte) ([]byte, bool) {
	tok := []byte(s.token)
	cleaned := terminal.Clean(buf)
	if !bytes.HasSuffix(cleaned, tok) {
		return nil, false
	}
	if i := bytes.LastIndex(buf, tok); i >= 0 && bytes.Equal(terminal.Clean(buf[i:]), tok) {
		s.pending = append([]byte(nil), buf[i+len(tok):]...)
		return buf[:i], true
	}
	return cleaned[:len(cleaned)-len(tok)], true
}
