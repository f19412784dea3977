package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh/knownhosts"
)

// Connection failure sentinels, matched with errors.Is against a
// ConnectionError.
var (
	ErrUnreachable    = errors.New("host unreachable")
	ErrAuthentication = errors.New("authentication rejected")
	ErrProtocol       = errors.New("ssh protocol negotiation failed")
	ErrHostKey        = errors.New("host key verification failed")
)

// ErrNotReady is returned by Run on a session that is not prompt-synced.
var ErrNotReady = errors.New("session not ready")

// Kind classifies a connection failure.
type Kind int

const (
	KindUnreachable Kind = iota
	KindAuthentication
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindAuthentication:
		return "authentication"
	case KindProtocol:
		return "protocol"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ConnectionError reports why a session could not be established.
// Connection attempts are never retried.
type ConnectionError struct {
	Kind    Kind
	Addr    string
	HostKey bool // the protocol failure was a host key rejection
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is maps the kind onto the package sentinels.
func (e *ConnectionError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrHostKey:
		return e.HostKey
	}
	return false
}

// classify wraps a dial error into a ConnectionError.
func classify(addr string, err error) *ConnectionError {
	ce := &ConnectionError{Addr: addr, Err: err}
	msg := err.Error()

	var keyErr *knownhosts.KeyError
	var revoked *knownhosts.RevokedError
	var netErr net.Error

	switch {
	case strings.Contains(msg, "unable to authenticate"):
		ce.Kind = KindAuthentication
	case errors.As(err, &keyErr), errors.As(err, &revoked), strings.Contains(msg, "knownhosts:"):
		ce.Kind = KindProtocol
		ce.HostKey = true
	case strings.HasPrefix(msg, "ssh: handshake failed"):
		ce.Kind = KindProtocol
	case errors.As(err, &netErr), errors.Is(err, context.Canceled):
		ce.Kind = KindUnreachable
	default:
		ce.Kind = KindProtocol
	}
	return ce
}
