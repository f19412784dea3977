// Package probefile finds and parses .sshprobe files: one sshprobe
// invocation per line, with the program name optional.
package probefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// FileName is the file FindFile looks for.
const FileName = ".sshprobe"

// Program is the leading word every parsed line is normalized to.
const Program = "sshprobe"

// Line is one invocation from a probe file.
type Line struct {
	Number int      // 1-based line number in the file
	Text   string   // the trimmed source text
	Args   []string // arguments after the program name
}

func FindFile(startDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("probe file not found: %w", err)
		}
		return explicitPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		path := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		if currentDir == homeDir {
			break
		}

		if _, err := os.Stat(filepath.Join(currentDir, ".git")); err == nil {
			break
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", errors.New(FileName + " file not found")
}

// ParseFile reads path, skipping blank lines and lines starting with "#".
// Arguments are split the way a shell would split them.
func ParseFile(path string) ([]Line, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading probe file
	if err != nil {
		return nil, fmt.Errorf("failed to read probe file: %w", err)
	}

	lines := []Line{}
	for i, raw := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		args, err := SplitArgs(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
		}
		if len(args) > 0 && args[0] == Program {
			args = args[1:]
		}
		lines = append(lines, Line{Number: i + 1, Text: trimmed, Args: args})
	}

	return lines, nil
}

// SplitArgs splits s into words with POSIX shell quoting rules. No
// expansion is performed.
func SplitArgs(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", s, err)
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
