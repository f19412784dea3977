package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vertti/sshprobe/pkg/probefile"
)

var runFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run probes from a .sshprobe file",
	Long: "Run every line of a .sshprobe file as a separate sshprobe invocation and stop at the first\n" +
		"one that does not pass. Connection and logging flags given to run are passed on to each line.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "path to .sshprobe file (default: search up from current directory)")
	rootCmd.AddCommand(runCmd)
}

// lineRunner runs one probe file line and returns its exit code.
type lineRunner func(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error)

var runLine lineRunner = execSelf

func runRun(cmd *cobra.Command, _ []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	path, err := probefile.FindFile(wd, runFile)
	if err != nil {
		return err
	}

	lines, err := probefile.ParseFile(path)
	if err != nil {
		return err
	}

	inherited := inheritedArgs(cmd)
	for _, line := range lines {
		if len(line.Args) == 0 {
			continue
		}
		args := append(append([]string{}, line.Args...), inherited...)
		code, err := runLine(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("%s:%d: failed to execute %q: %w", path, line.Number, line.Text, err)
		}
		if code != 0 {
			return &ExitError{Code: code}
		}
	}

	return nil
}

// inheritedArgs renders the persistent flags set on the command line so each
// line runs with the same connection and logging settings.
func inheritedArgs(cmd *cobra.Command) []string {
	var args []string
	cmd.InheritedFlags().Visit(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			for _, v := range sv.GetSlice() {
				args = append(args, "--"+f.Name+"="+v)
			}
			return
		}
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}

func execSelf(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	child := exec.CommandContext(ctx, executable, args...) //nolint:gosec // re-invoking ourselves
	child.Stdout = stdout
	child.Stderr = stderr
	child.Stdin = os.Stdin

	if err := child.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return exitError.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}
