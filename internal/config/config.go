// Package config reads process settings from flags, falling back to the
// environment for anything not given on the command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
)

type Mode string

const (
	// ModeMatch queues each SSH session into the lobby to play a remote
	// opponent.
	ModeMatch Mode = "match"
	// ModeHotSeat gives each SSH session its own board for both colors.
	ModeHotSeat Mode = "hot-seat"
)

type Config struct {
	SSHPort       int
	HTTPPort      string // empty disables the HTTP server
	Local         bool
	HostKeyPath   string
	HostKeySecret string // Secret Manager secret version name
	LogLevel      log.Level
	Mode          Mode
	AllowOrigin   string
	Position      string // board diagram file for hot-seat games
}

func (c Config) SSHAddr() string  { return fmt.Sprintf(":%d", c.SSHPort) }
func (c Config) HTTPAddr() string { return ":" + c.HTTPPort }

func defaultHostKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fusionchess", "host_key")
	}
	return filepath.Join(home, ".fusionchess", "host_key")
}

// Load parses args (without the program name). Environment variables
// supply defaults: SSH_PORT, PORT, LOCAL, SSH_HOST_KEY_PATH,
// SSH_HOST_KEY_SECRET, LOG_LEVEL, MODE and ALLOW_ORIGIN.
func Load(args []string) (Config, error) {
	sshPort, err := envInt("SSH_PORT", 2222)
	if err != nil {
		return Config{}, err
	}
	local, err := envBool("LOCAL", false)
	if err != nil {
		return Config{}, err
	}

	var (
		cfg      Config
		logLevel string
		mode     string
	)
	fs := flag.NewFlagSet("fusionchess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.SSHPort, "ssh-port", sshPort, "SSH server port")
	fs.StringVar(&cfg.HTTPPort, "http-port", os.Getenv("PORT"), "HTTP port for /ws, /ssh and /api (empty disables)")
	fs.BoolVar(&cfg.Local, "local", local, "use a local host key instead of Secret Manager")
	fs.StringVar(&cfg.HostKeyPath, "host-key", envString("SSH_HOST_KEY_PATH", defaultHostKeyPath()), "local host key path, generated if missing")
	fs.StringVar(&logLevel, "log-level", envString("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&mode, "mode", envString("MODE", string(ModeMatch)), "match or hot-seat")
	fs.StringVar(&cfg.AllowOrigin, "allow-origin", os.Getenv("ALLOW_ORIGIN"), "only accept WebSocket upgrades from this origin")
	fs.StringVar(&cfg.Position, "position", "", "board diagram file used as the hot-seat starting position")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.HostKeySecret = os.Getenv("SSH_HOST_KEY_SECRET")

	if cfg.LogLevel, err = log.ParseLevel(logLevel); err != nil {
		return Config{}, fmt.Errorf("log level %q: %w", logLevel, err)
	}
	cfg.Mode = Mode(mode)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.SSHPort <= 0 || c.SSHPort > 65535 {
		errs = append(errs, fmt.Errorf("ssh port %d out of range", c.SSHPort))
	}
	if c.HTTPPort != "" {
		if p, err := strconv.Atoi(c.HTTPPort); err != nil || p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("http port %q is not a valid port", c.HTTPPort))
		}
	}
	switch c.Mode {
	case ModeMatch, ModeHotSeat:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if !c.Local && c.HostKeySecret == "" {
		errs = append(errs, errors.New("SSH_HOST_KEY_SECRET is required unless -local is set"))
	}
	if c.Position != "" && c.Mode != ModeHotSeat {
		errs = append(errs, errors.New("-position requires -mode=hot-seat"))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
