package config

import (
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{"SSH_PORT", "PORT", "LOCAL", "SSH_HOST_KEY_PATH", "SSH_HOST_KEY_SECRET", "LOG_LEVEL", "MODE", "ALLOW_ORIGIN"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load([]string{"-local"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		SSHPort:     2222,
		Local:       true,
		HostKeyPath: defaultHostKeyPath(),
		LogLevel:    log.InfoLevel,
		Mode:        ModeMatch,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.SSHAddr() != ":2222" {
		t.Errorf("SSHAddr = %q", cfg.SSHAddr())
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSH_PORT", "2022")
	t.Setenv("PORT", "8080")
	t.Setenv("SSH_HOST_KEY_SECRET", "projects/p/secrets/host-key/versions/latest")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOW_ORIGIN", "https://chess.example")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		SSHPort:       2022,
		HTTPPort:      "8080",
		HostKeyPath:   defaultHostKeyPath(),
		HostKeySecret: "projects/p/secrets/host-key/versions/latest",
		LogLevel:      log.DebugLevel,
		Mode:          ModeMatch,
		AllowOrigin:   "https://chess.example",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr())
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSH_PORT", "2022")
	t.Setenv("LOCAL", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-ssh-port=3333", "-local", "-log-level=warn", "-mode=hot-seat", "-position=start.txt", "-host-key=/tmp/key"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SSHPort != 3333 || !cfg.Local || cfg.LogLevel != log.WarnLevel || cfg.Mode != ModeHotSeat {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Position != "start.txt" || cfg.HostKeyPath != "/tmp/key" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{name: "missing secret", want: "SSH_HOST_KEY_SECRET"},
		{name: "bad mode", args: []string{"-local", "-mode=blitz"}, want: "unknown mode"},
		{name: "bad port", args: []string{"-local", "-ssh-port=70000"}, want: "out of range"},
		{name: "bad http port", args: []string{"-local", "-http-port=web"}, want: "http port"},
		{name: "bad level", args: []string{"-local", "-log-level=loud"}, want: "log level"},
		{name: "bad env port", env: map[string]string{"SSH_PORT": "ssh"}, want: "SSH_PORT"},
		{name: "bad env bool", env: map[string]string{"LOCAL": "maybe"}, want: "LOCAL"},
		{name: "position needs hot-seat", args: []string{"-local", "-position=p.txt"}, want: "hot-seat"},
		{name: "unknown flag", args: []string{"-colour"}, want: "colour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
