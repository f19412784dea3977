package testutil

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Fake shell defaults.
const (
	ServerUser     = "probe"
	ServerPassword = "secret"
	DefaultBanner  = "Welcome to Ubuntu 22.04.3 LTS\r\n\r\nLast login: Mon Oct 14 09:12:44 2024 from 10.0.0.7\r\n"
	DefaultPrompt  = "\x1b]0;probe@web-1: ~\x07\x1b[01;32mprobe@web-1\x1b[00m:\x1b[01;34m~\x1b[00m$ "
)

const (
	bracketedPasteOn  = "\x1b[?2004h"
	bracketedPasteOff = "\x1b[?2004l\r"
)

var ps1Assignment = regexp.MustCompile(`PS1=((?:'[^']*')+)`)

// SSHServer is an in-process SSH server exposing a scripted interactive
// shell. It echoes every line the way a PTY does, wraps prompts in
// bracketed-paste toggles and honours PS1 assignments.
type SSHServer struct {
	// Responses maps a command line to its output. Unknown commands get a
	// "command not found" line.
	Responses map[string]string
	// Hang lists commands after which no prompt is ever printed.
	Hang map[string]bool
	// ChunkSize splits every write into pieces of this many bytes when > 0.
	ChunkSize int
	Banner    string
	Prompt    string

	HostKey ssh.PublicKey

	ln     net.Listener
	config *ssh.ServerConfig

	mu       sync.Mutex
	commands []string
	opened   int
	closed   int
	wg       sync.WaitGroup
}

// NewSSHServer starts a server on a loopback port and stops it when the test
// ends. Fields may be changed before the first connection.
func NewSSHServer(t testing.TB) *SSHServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	s := &SSHServer{
		Responses: map[string]string{},
		Hang:      map[string]bool{},
		Banner:    DefaultBanner,
		Prompt:    DefaultPrompt,
		HostKey:   signer.PublicKey(),
	}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if c.User() == ServerUser && string(password) == ServerPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	s.config.AddHostKey(signer)

	s.ln, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listening address.
func (s *SSHServer) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listening port.
func (s *SSHServer) Port() uint {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.ParseUint(port, 10, 32)
	return uint(p)
}

// Commands returns every line the shells received, in order.
func (s *SSHServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Sessions returns how many session channels were opened and how many of
// them have ended.
func (s *SSHServer) Sessions() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

// Close stops accepting connections.
func (s *SSHServer) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

func (s *SSHServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *SSHServer) handleConn(conn net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.opened++
		s.mu.Unlock()
		go s.handleSession(ch, requests)
	}
}

func (s *SSHServer) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer func() {
		_ = ch.Close()
		s.mu.Lock()
		s.closed++
		s.mu.Unlock()
	}()

	started := make(chan bool, 1)
	go func() {
		shell := false
		for req := range requests {
			switch req.Type {
			case "pty-req", "env", "window-change":
				_ = req.Reply(true, nil)
			case "shell":
				_ = req.Reply(!shell, nil)
				if !shell {
					shell = true
					started <- true
				}
			default:
				_ = req.Reply(false, nil)
			}
		}
		if !shell {
			started <- false
		}
	}()

	if <-started {
		s.shell(ch)
	}
}

func (s *SSHServer) shell(ch ssh.Channel) {
	prompt := s.Prompt
	s.write(ch, s.Banner+bracketedPasteOn+prompt)

	r := bufio.NewReader(ch)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return
			}
			if line == "" {
				return
			}
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		s.write(ch, line+"\r\n"+bracketedPasteOff)

		switch {
		case line == "exit":
			s.write(ch, "logout\r\n")
			_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
			return
		case ps1Assignment.MatchString(line):
			m := ps1Assignment.FindStringSubmatch(line)
			prompt = strings.ReplaceAll(m[1], "'", "")
		case s.Hang[line]:
			continue
		case strings.TrimSpace(line) == "":
		default:
			if out, ok := s.Responses[line]; ok {
				s.write(ch, toCRLF(out))
			} else {
				s.write(ch, fmt.Sprintf("bash: %s: command not found\r\n", strings.Fields(line)[0]))
			}
		}
		s.write(ch, bracketedPasteOn+prompt)
	}
}

func (s *SSHServer) write(w io.Writer, out string) {
	b := []byte(out)
	if s.ChunkSize <= 0 {
		_, _ = w.Write(b)
		return
	}
	for len(b) > 0 {
		n := min(s.ChunkSize, len(b))
		_, _ = w.Write(b[:n])
		b = b[n:]
	}
}

// toCRLF renders output the way a PTY with ONLCR does.
func toCRLF(out string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return strings.ReplaceAll(out, "\n", "\r\n")
}
