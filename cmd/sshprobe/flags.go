package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertti/sshprobe/pkg/check"
	"github.com/vertti/sshprobe/pkg/config"
	"github.com/vertti/sshprobe/pkg/logging"
	"github.com/vertti/sshprobe/pkg/prompt"
	"github.com/vertti/sshprobe/pkg/session"
)

var (
	hosts          []string
	user           string
	port           uint
	envFile        string
	askPassword    bool
	promptTimeout  time.Duration
	connectTimeout time.Duration
	hostKeyPolicy  string
	knownHostsFile string
	errorExitCode  int
	parallel       int
	debug          bool
	logFormat      string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&hosts, "host", nil, "host to probe, repeatable (default $"+config.EnvHost+")")
	pf.StringVar(&user, "user", "", "login name (default $"+config.EnvUser+")")
	pf.UintVar(&port, "port", 0, "SSH port (default $"+config.EnvPort+" or 22)")
	pf.StringVar(&envFile, "env-file", "", "load environment variables from a dotenv file")
	pf.BoolVar(&askPassword, "ask-password", false, "prompt for the password when $"+config.EnvPassword+" is unset")
	pf.DurationVar(&promptTimeout, "timeout", prompt.DefaultTimeout, "how long to wait for the shell prompt after each command")
	pf.DurationVar(&connectTimeout, "connect-timeout", session.DefaultConnectTimeout, "TCP connect and SSH handshake timeout")
	pf.StringVar(&hostKeyPolicy, "host-key", string(session.HostKeyInsecure), "host key policy: insecure, known-hosts or tofu")
	pf.StringVar(&knownHostsFile, "known-hosts", "", "known hosts file (default ~/.ssh/known_hosts)")
	pf.IntVar(&errorExitCode, "error-exit-code", check.DefaultExitError, "exit code when a probe cannot reach a verdict")
	pf.IntVar(&parallel, "parallel", 0, "maximum hosts probed at once (0 = all)")
	pf.BoolVar(&debug, "debug", false, "log every step to stderr")
	pf.StringVar(&logFormat, "log-format", logging.FormatConsole, "log format: console or json")
}

// configErrorCode is the exit code for configuration and usage errors.
func configErrorCode() int {
	if errorExitCode < 1 || errorExitCode > 125 {
		return check.DefaultExitError
	}
	return errorExitCode
}

// loadConfig builds the probe configuration: dotenv file, then environment,
// then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.FromEnv(config.Default(), os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Hosts = nil
		for _, h := range hosts {
			cfg.Hosts = append(cfg.Hosts, config.SplitHosts(h)...)
		}
	}
	if flags.Changed("user") {
		cfg.Username = user
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	cfg.PromptTimeout = promptTimeout
	cfg.ConnectTimeout = connectTimeout
	cfg.HostKeyPolicy = hostKeyPolicy
	cfg.KnownHostsFile = knownHostsFile
	cfg.ErrorExitCode = errorExitCode

	if askPassword && cfg.Password == "" {
		pw, err := config.ReadPassword(config.StdinFD(), cmd.ErrOrStderr())
		if err != nil {
			return cfg, err
		}
		cfg.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	logger, err := logging.New(logging.Config{Debug: debug, Format: logFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return logger, nil
}
