package main

import (
	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"

	"github.com/vertti/sshprobe/pkg/predicate"
)

var serviceState string

var serviceCmd = &cobra.Command{
	Use:   "service <unit>",
	Short: "Check that a systemd unit is in the expected state",
	Args:  cobra.ExactArgs(1),
	RunE:  runServiceProbe,
}

func init() {
	serviceCmd.Flags().StringVar(&serviceState, "state", "active", "expected output of systemctl is-active")
	rootCmd.AddCommand(serviceCmd)
}

func runServiceProbe(cmd *cobra.Command, args []string) error {
	unit := args[0]
	return runProbe(cmd, probeSpec{
		name:      "service:" + unit,
		command:   "systemctl is-active " + shellescape.Quote(unit),
		predicate: predicate.Equals(serviceState),
	})
}
