package main

import (
	"fmt"
	"strconv"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"

	"github.com/vertti/sshprobe/pkg/predicate"
)

var modeWant string

var modeCmd = &cobra.Command{
	Use:   "mode <path>",
	Short: "Check the octal permission bits of a remote file",
	Args:  cobra.ExactArgs(1),
	RunE:  runModeProbe,
}

func init() {
	modeCmd.Flags().StringVar(&modeWant, "want", "644", "expected octal mode as printed by stat -c %a")
	rootCmd.AddCommand(modeCmd)
}

func runModeProbe(cmd *cobra.Command, args []string) error {
	if _, err := strconv.ParseUint(modeWant, 8, 32); err != nil {
		return fmt.Errorf("--want: %q is not an octal mode", modeWant)
	}

	path := args[0]
	return runProbe(cmd, probeSpec{
		name:      "mode:" + path,
		command:   `stat -c "%a" ` + shellescape.Quote(path),
		predicate: predicate.Equals(modeWant),
	})
}
