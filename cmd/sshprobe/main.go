package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var knownSubcommands = []string{"exec", "service", "mode", "sql", "run", "help", "completion", "--help", "-h", "--version", "-v"}

func main() {
	var file string
	os.Args, file = transformArgs(os.Args, isFile)
	if file != "" {
		runFile = file
	}

	err := rootCmd.Execute()
	os.Exit(reportExit(err, os.Stderr))
}

var rootCmd = &cobra.Command{
	Use:   "sshprobe",
	Short: "Remote health probes over interactive SSH shells",
	Long: "sshprobe logs in to a host with a password, runs one command in an interactive shell " +
		"and turns the command's answer into an exit code: 0 pass, 1 fail, 2 could not check.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// transformArgs rewrites "sshprobe <file> ..." into "sshprobe run ..." so a
// probe file can start with "#!/usr/bin/env sshprobe".
func transformArgs(args []string, fileExists func(string) bool) ([]string, string) {
	if len(args) < 2 {
		return args, ""
	}
	first := args[1]
	if strings.HasPrefix(first, "-") || slices.Contains(knownSubcommands, first) {
		return args, ""
	}
	if !fileExists(first) {
		return args, ""
	}
	return append([]string{args[0], "run"}, args[2:]...), first
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ExitError carries a process exit code out of a command. Err, when set, is
// printed before exiting.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// reportExit prints err to w when it carries a message and returns the exit
// code for it. Usage errors count as configuration errors.
func reportExit(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.Err != nil {
			fmt.Fprintf(w, "Error: %v\n", ee.Err)
		}
		return ee.Code
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return configErrorCode()
}
