package session

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyCallback builds the verifier for policy. The insecure policy is the
// default: internal fleet checks accept any host key and persist nothing.
func hostKeyCallback(policy HostKeyPolicy, file string) (ssh.HostKeyCallback, error) {
	switch policy {
	case HostKeyInsecure, "":
		return ssh.InsecureIgnoreHostKey(), nil
	case HostKeyKnownHosts:
		if file == "" {
			return goph.DefaultKnownHosts()
		}
		return goph.KnownHosts(file)
	case HostKeyTOFU:
		path, err := knownHostsPath(file)
		if err != nil {
			return nil, err
		}
		if err := ensureFile(path); err != nil {
			return nil, err
		}
		return trustOnFirstUse(path), nil
	}
	return nil, fmt.Errorf("unknown host key policy %q", policy)
}

// trustOnFirstUse accepts a host that is not in path and appends its key.
// A host whose recorded key differs is rejected.
func trustOnFirstUse(path string) ssh.HostKeyCallback {
	return func(host string, remote net.Addr, key ssh.PublicKey) error {
		found, err := goph.CheckKnownHost(host, remote, key, path)
		if found {
			return err
		}
		var keyErr *knownhosts.KeyError
		if err != nil && !(errors.As(err, &keyErr) && len(keyErr.Want) == 0) {
			return err
		}
		return goph.AddKnownHost(host, remote, key, path)
	}
}

func knownHostsPath(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	return goph.DefaultKnownHostsPath()
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create known hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // path is operator supplied
	if err != nil {
		return fmt.Errorf("create known hosts file: %w", err)
	}
	return f.Close()
}
