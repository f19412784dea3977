package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vertti/sshprobe/pkg/check"
	"github.com/vertti/sshprobe/pkg/logging"
	"github.com/vertti/sshprobe/pkg/output"
	"github.com/vertti/sshprobe/pkg/predicate"
	"github.com/vertti/sshprobe/pkg/probe"
	"github.com/vertti/sshprobe/pkg/session"
)

// probeSpec is what a subcommand contributes: the command and how to judge
// its answer.
type probeSpec struct {
	name      string // result name prefix, e.g. "service:nginx"
	command   string
	predicate predicate.Predicate
	line      int
	print     bool // print only the tested value per host
}

// runProbe runs spec on every configured host and returns an *ExitError for
// any outcome other than all hosts passing.
func runProbe(cmd *cobra.Command, spec probeSpec) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &ExitError{Code: configErrorCode(), Err: err}
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return &ExitError{Code: configErrorCode(), Err: err}
	}
	defer func() { _ = logger.Sync() }()

	mgr := session.NewManager(logger)
	opts := cfg.SessionOptions()
	probes := make([]*probe.Probe, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		creds := cfg.Credentials(host)
		probes = append(probes, &probe.Probe{
			Name:      fmt.Sprintf("%s@%s", spec.name, creds.Addr()),
			Command:   spec.command,
			Predicate: spec.predicate,
			Line:      spec.line,
			Dialer:    probe.SSHDialer{Manager: mgr, Credentials: creds, Options: opts},
		})
	}

	ctx := logging.Attach(cmd.Context(), logger)
	results := probe.RunAll(ctx, probes, parallel)
	out := cmd.OutOrStdout()
	for _, r := range results {
		if spec.print && r.Status != check.StatusError {
			fmt.Fprintln(out, r.Output)
			continue
		}
		output.FprintResult(out, r)
	}

	if code := cfg.Reporter().Combine(results); code != check.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}
