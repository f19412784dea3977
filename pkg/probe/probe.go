// Package probe runs one command in one remote shell and turns its output
// into a check result.
package probe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vertti/sshprobe/pkg/check"
	"github.com/vertti/sshprobe/pkg/logging"
	"github.com/vertti/sshprobe/pkg/predicate"
	"github.com/vertti/sshprobe/pkg/prompt"
	"github.com/vertti/sshprobe/pkg/session"
	"github.com/vertti/sshprobe/pkg/terminal"
)

// Shell runs commands in a prompt-synchronized interactive shell.
type Shell interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
	Close() error
}

// Dialer opens a Shell.
type Dialer interface {
	Dial(ctx context.Context) (Shell, error)
}

// SSHDialer opens shells with a session.Manager.
type SSHDialer struct {
	Manager     *session.Manager
	Credentials session.Credentials
	Options     session.Options
}

// Dial connects and synchronizes the prompt.
func (d SSHDialer) Dial(ctx context.Context) (Shell, error) {
	s, err := d.Manager.Connect(ctx, d.Credentials, d.Options)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Probe is a single check: connect, run one command, test one line of its
// output.
type Probe struct {
	Name      string
	Command   string
	Predicate predicate.Predicate
	Dialer    Dialer
	// Line selects the output line tested; zero means predicate.TargetLine.
	Line int
	// Logger defaults to the logger attached to the context passed to Run.
	Logger *zap.Logger
}

var _ check.Checker = (*Probe)(nil)

// Run executes the probe. The shell is closed exactly once on every path
// that opened it. Errors give StatusError; a false verdict gives StatusFail.
func (p *Probe) Run(ctx context.Context) check.Result {
	res := check.Result{Name: p.Name}
	log := p.logger(ctx)

	res.AddDetailf("command: %s", p.Command)

	log.Debug("connecting")
	shell, err := p.Dialer.Dial(ctx)
	if err != nil {
		log.Error("connect failed", zap.String("kind", Kind(err)), zap.Error(err))
		return res.Error("error: "+Kind(err), err)
	}
	defer func() {
		if err := shell.Close(); err != nil {
			log.Warn("close session", zap.Error(err))
		}
	}()

	log.Debug("command sent", zap.String("command", p.Command))
	raw, err := shell.Run(ctx, p.Command)
	if err != nil {
		log.Error("command did not complete",
			zap.String("kind", Kind(err)),
			zap.Error(err),
			zap.ByteString("raw", prompt.CapturedOutput(err)))
		return res.Error("error: "+Kind(err), err)
	}
	log.Debug("raw capture", zap.ByteString("raw", raw))

	lines := terminal.Sanitize(raw)
	line := p.line()
	ok, err := predicate.EvaluateLine(lines, line, p.Predicate)
	if err != nil {
		log.Error("cannot evaluate output",
			zap.String("kind", Kind(err)),
			zap.Error(err),
			zap.ByteString("raw", raw))
		return res.Error("error: "+Kind(err), err)
	}

	res.Output = predicate.Target(lines, line)
	res.AddDetailf("output: %s", res.Output)
	log.Info("verdict", zap.Bool("pass", ok), zap.String("output", res.Output))

	if !ok {
		return res.Fail("want: "+p.Predicate.String(),
			fmt.Errorf("output %q does not satisfy %s", res.Output, p.Predicate))
	}
	return res.Pass()
}

func (p *Probe) line() int {
	if p.Line == 0 {
		return predicate.TargetLine
	}
	return p.Line
}

func (p *Probe) logger(ctx context.Context) *zap.Logger {
	l := p.Logger
	if l == nil {
		l = logging.FromContext(ctx)
	}
	return l.With(zap.String("probe", p.Name))
}

// Kind names the error category of err for logs and result details.
func Kind(err error) string {
	switch {
	case errors.Is(err, session.ErrHostKey):
		return "host-key"
	case errors.Is(err, session.ErrAuthentication):
		return "authentication"
	case errors.Is(err, session.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, session.ErrProtocol):
		return "protocol"
	case errors.Is(err, prompt.ErrTimeout):
		return "prompt-timeout"
	case errors.Is(err, predicate.ErrMalformedOutput):
		return "malformed-output"
	case errors.Is(err, predicate.ErrPredicate):
		return "predicate"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "internal"
}
