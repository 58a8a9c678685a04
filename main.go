package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/imjasonh/fusionchess/internal/chess"
	"github.com/imjasonh/fusionchess/internal/config"
	"github.com/imjasonh/fusionchess/internal/hostkey"
	"github.com/imjasonh/fusionchess/internal/lobby"
)

// startingGame returns the game hot-seat sessions begin from.
func startingGame(cfg config.Config) (chess.Game, error) {
	if cfg.Position == "" {
		return chess.NewGame(), nil
	}
	data, err := os.ReadFile(cfg.Position)
	if err != nil {
		return chess.Game{}, fmt.Errorf("reading position: %w", err)
	}
	b, err := chess.ParseBoard(string(data))
	if err != nil {
		return chess.Game{}, fmt.Errorf("parsing position %s: %w", cfg.Position, err)
	}
	return chess.NewGameFromBoard(b, chess.White), nil
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "fusionchess",
	})

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hostKeyData, err := hostkey.Load(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to load host key", "err", err)
	}
	if cfg.Local {
		logger.Info("running in local mode", "hostKey", cfg.HostKeyPath)
	} else {
		logger.Info("running in cloud mode with Secret Manager")
	}

	start, err := startingGame(cfg)
	if err != nil {
		logger.Fatal("failed to load starting position", "err", err)
	}

	manager := lobby.NewManager(logger)
	s, err := newSSHServer(cfg, hostKeyData, manager, start, logger)
	if err != nil {
		logger.Fatal("failed to create SSH server", "err", err)
	}
	go func() {
		logger.Info("starting SSH server", "addr", cfg.SSHAddr(), "mode", cfg.Mode)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Error("SSH server stopped", "err", err)
			cancel()
		}
	}()

	var hs *http.Server
	if cfg.HTTPPort != "" {
		hs = &http.Server{
			Addr:              cfg.HTTPAddr(),
			Handler:           newMux(cfg, manager, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("starting HTTP server", "addr", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server stopped", "err", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	tctx, tcancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer tcancel()
	if hs != nil {
		if err := hs.Shutdown(tctx); err != nil {
			logger.Error("HTTP shutdown", "err", err)
		}
	}
	if err := s.Shutdown(tctx); err != nil {
		logger.Fatal("SSH shutdown", "err", err)
	}
}
