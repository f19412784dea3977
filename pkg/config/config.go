// Package config assembles the explicit configuration a probe runs with.
// Credentials come from the environment (optionally seeded from a dotenv
// file); everything else comes from flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/vertti/sshprobe/pkg/check"
	"github.com/vertti/sshprobe/pkg/prompt"
	"github.com/vertti/sshprobe/pkg/session"
)

// Environment variables read by FromEnv.
const (
	EnvHost     = "SSHPROBE_HOST"
	EnvUser     = "SSHPROBE_USER"
	EnvPassword = "SSHPROBE_PASSWORD"
	EnvPort     = "SSHPROBE_PORT"
)

// ErrConfig marks every configuration failure.
var ErrConfig = errors.New("configuration error")

// Config is everything needed to run a probe against one or more hosts.
type Config struct {
	Hosts    []string `env:"SSHPROBE_HOST" validate:"required,min=1,dive,required"`
	Username string   `env:"SSHPROBE_USER" validate:"required"`
	Password string   `env:"SSHPROBE_PASSWORD" validate:"required"`
	Port     uint     `env:"SSHPROBE_PORT" validate:"min=1,max=65535"`

	PromptTimeout  time.Duration `flag:"timeout" validate:"gt=0"`
	ConnectTimeout time.Duration `flag:"connect-timeout" validate:"gt=0"`
	HostKeyPolicy  string        `flag:"host-key" validate:"oneof=insecure known-hosts tofu"`
	KnownHostsFile string        `flag:"known-hosts"`
	ErrorExitCode  int           `flag:"error-exit-code" validate:"min=1,max=125"`
}

// Default returns a Config with every non-credential field set.
func Default() Config {
	return Config{
		Port:           session.DefaultPort,
		PromptTimeout:  prompt.DefaultTimeout,
		ConnectTimeout: session.DefaultConnectTimeout,
		HostKeyPolicy:  string(session.HostKeyInsecure),
		ErrorExitCode:  check.DefaultExitError,
	}
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set keep their values.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: load env file %s: %w", ErrConfig, path, err)
	}
	return nil
}

// FromEnv fills the credential fields of cfg from lookup, typically
// os.LookupEnv. SSHPROBE_HOST may hold a comma-separated list.
func FromEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvHost); ok {
		cfg.Hosts = SplitHosts(v)
	}
	if v, ok := lookup(EnvUser); ok {
		cfg.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		cfg.Password = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q is not a port number", ErrConfig, EnvPort, v)
		}
		cfg.Port = uint(port)
	}
	return cfg, nil
}

// SplitHosts splits a comma-separated host list, dropping empty entries.
func SplitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// ReadPassword prompts on w and reads a password from the terminal fd
// without echo.
func ReadPassword(fd int, w io.Writer) (string, error) {
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: cannot ask for password: input is not a terminal", ErrConfig)
	}
	fmt.Fprint(w, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("%w: read password: %w", ErrConfig, err)
	}
	return string(b), nil
}

// StdinFD returns the descriptor ReadPassword reads from by default.
func StdinFD() int {
	return int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		if name := f.Tag.Get("flag"); name != "" {
			return "--" + name
		}
		return f.Name
	})
	return v
}

// Validate reports every invalid field, named by its environment variable
// or flag.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return name + " is required"
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", name, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}

// Credentials returns the login for host. A "host:port" entry overrides the
// configured port; a bare "[v6]" entry loses its brackets.
func (c Config) Credentials(host string) session.Credentials {
	creds := session.Credentials{
		Host:     host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		if port, err := strconv.ParseUint(p, 10, 16); err == nil {
			creds.Host, creds.Port = h, uint(port)
		}
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		creds.Host = host[1 : len(host)-1]
	}
	return creds
}

// SessionOptions returns the connect options.
func (c Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.HostKeyPolicy = session.HostKeyPolicy(c.HostKeyPolicy)
	opts.KnownHostsFile = c.KnownHostsFile
	opts.ConnectTimeout = c.ConnectTimeout
	opts.PromptTimeout = c.PromptTimeout
	return opts
}

// Reporter returns the exit code mapping.
func (c Config) Reporter() check.Reporter {
	return check.Reporter{ErrorCode: c.ErrorExitCode}
}
