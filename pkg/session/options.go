package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/vertti/sshprobe/pkg/prompt"
)

// HostKeyPolicy selects how the server's host key is verified.
type HostKeyPolicy string

const (
	// HostKeyInsecure accepts any host key and records nothing.
	HostKeyInsecure HostKeyPolicy = "insecure"
	// HostKeyKnownHosts requires the key to be present in the known hosts file.
	HostKeyKnownHosts HostKeyPolicy = "known-hosts"
	// HostKeyTOFU accepts and records unknown hosts and rejects changed keys.
	HostKeyTOFU HostKeyPolicy = "tofu"
)

// ParseHostKeyPolicy validates a policy name.
func ParseHostKeyPolicy(s string) (HostKeyPolicy, error) {
	switch p := HostKeyPolicy(s); p {
	case HostKeyInsecure, HostKeyKnownHosts, HostKeyTOFU:
		return p, nil
	}
	return "", fmt.Errorf("unknown host key policy %q (want insecure, known-hosts or tofu)", s)
}

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultPort           = 22
	DefaultTerm           = "xterm"
	// DefaultColumns is wide so the shell never wraps the echoed command.
	DefaultColumns = 1024
	DefaultRows    = 24
)

// Options control how a session is established.
type Options struct {
	HostKeyPolicy  HostKeyPolicy
	KnownHostsFile string        // empty means ~/.ssh/known_hosts
	ConnectTimeout time.Duration // TCP connect and handshake
	PromptTimeout  time.Duration // each wait for the prompt token
	Term           string
	Columns        int
	Rows           int
}

// DefaultOptions returns insecure host key handling and default timeouts.
func DefaultOptions() Options {
	return Options{
		HostKeyPolicy:  HostKeyInsecure,
		ConnectTimeout: DefaultConnectTimeout,
		PromptTimeout:  prompt.DefaultTimeout,
		Term:           DefaultTerm,
		Columns:        DefaultColumns,
		Rows:           DefaultRows,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HostKeyPolicy == "" {
		o.HostKeyPolicy = d.HostKeyPolicy
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.PromptTimeout <= 0 {
		o.PromptTimeout = d.PromptTimeout
	}
	if o.Term == "" {
		o.Term = d.Term
	}
	if o.Columns <= 0 {
		o.Columns = d.Columns
	}
	if o.Rows <= 0 {
		o.Rows = d.Rows
	}
	return o
}

// Credentials identify the remote account. Only password authentication is
// used.
type Credentials struct {
	Host     string
	Port     uint
	Username string
	Password string
}

// port returns the configured port or DefaultPort.
func (c Credentials) port() uint {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

// Addr returns host:port.
func (c Credentials) Addr() string {
	port := c.port()
	return net.JoinHostPort(c.Host, strconv.FormatUint(uint64(port), 10))
}

