package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/sshprobe/pkg/session"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func validConfig() Config {
	cfg := Default()
	cfg.Hosts = []string{"web-1"}
	cfg.Username = "probe"
	cfg.Password = "secret"
	return cfg
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(Default(), lookupFrom(map[string]string{
		EnvHost:     "web-1, web-2,,",
		EnvUser:     "probe",
		EnvPassword: "secret",
		EnvPort:     "2222",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"web-1", "web-2"}, cfg.Hosts)
	assert.Equal(t, "probe", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, uint(2222), cfg.Port)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_KeepsDefaults(t *testing.T) {
	cfg, err := FromEnv(Default(), lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, uint(22), cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.PromptTimeout)
	assert.Equal(t, "insecure", cfg.HostKeyPolicy)
	assert.Equal(t, 2, cfg.ErrorExitCode)
}

func TestFromEnv_BadPort(t *testing.T) {
	_, err := FromEnv(Default(), lookupFrom(map[string]string{EnvPort: "ssh"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "SSHPROBE_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Hosts = nil },
			wantErr: []string{"SSHPROBE_HOST is required"},
		},
		{
			name:    "empty host list",
			mutate:  func(c *Config) { c.Hosts = []string{} },
			wantErr: []string{"SSHPROBE_HOST is required"},
		},
		{
			name:    "blank host entry",
			mutate:  func(c *Config) { c.Hosts = []string{"web-1", ""} },
			wantErr: []string{"SSHPROBE_HOST is required"},
		},
		{
			name: "missing credentials",
			mutate: func(c *Config) {
				c.Username = ""
				c.Password = ""
			},
			wantErr: []string{"SSHPROBE_USER is required", "SSHPROBE_PASSWORD is required"},
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.PromptTimeout = 0 },
			wantErr: []string{"--timeout must be greater than 0"},
		},
		{
			name:    "bad host key policy",
			mutate:  func(c *Config) { c.HostKeyPolicy = "strict" },
			wantErr: []string{"--host-key must be one of insecure, known-hosts, tofu"},
		},
		{
			name:    "exit code out of range",
			mutate:  func(c *Config) { c.ErrorExitCode = 0 },
			wantErr: []string{"--error-exit-code must be at least 1"},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: []string{"SSHPROBE_PORT must be at least 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SSHPROBE_USER=fromfile\nSSHPROBE_PASSWORD=filepass\n"), 0o600))

	t.Setenv(EnvUser, "fromenv")
	t.Setenv(EnvPassword, "")
	require.NoError(t, os.Unsetenv(EnvPassword))

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "fromenv", os.Getenv(EnvUser))
	assert.Equal(t, "filepass", os.Getenv(EnvPassword))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestReadPassword_NotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	_, err = ReadPassword(int(f.Fd()), os.Stderr) //nolint:gosec // test fd
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfig_SessionOptions(t *testing.T) {
	cfg := validConfig()
	cfg.HostKeyPolicy = "tofu"
	cfg.KnownHostsFile = "/tmp/kh"
	cfg.PromptTimeout = 5 * time.Second
	cfg.ConnectTimeout = 3 * time.Second

	opts := cfg.SessionOptions()
	assert.Equal(t, session.HostKeyTOFU, opts.HostKeyPolicy)
	assert.Equal(t, "/tmp/kh", opts.KnownHostsFile)
	assert.Equal(t, 5*time.Second, opts.PromptTimeout)
	assert.Equal(t, 3*time.Second, opts.ConnectTimeout)
	assert.Equal(t, session.DefaultTerm, opts.Term)

	creds := cfg.Credentials("web-1")
	assert.Equal(t, "web-1:22", creds.Addr())
	assert.Equal(t, "probe", creds.Username)

	assert.Equal(t, 2, cfg.Reporter().ErrorCode)
}

func TestConfig_Credentials(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 2222

	tests := []struct {
		host     string
		wantAddr string
	}{
		{"web-1", "web-1:2222"},
		{"web-1:22", "web-1:22"},
		{"[::1]:2200", "[::1]:2200"},
		{"::1", "[::1]:2222"},
		{"[::1]", "[::1]:2222"},
		{"[fe80::1]", "[fe80::1]:2222"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantAddr, cfg.Credentials(tt.host).Addr(), tt.host)
	}
}
