package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/imjasonh/fusionchess/internal/chess"
	"github.com/imjasonh/fusionchess/internal/config"
	"github.com/imjasonh/fusionchess/internal/lobby"
	"github.com/imjasonh/fusionchess/internal/tui"
)

func newSSHServer(cfg config.Config, hostKey []byte, manager *lobby.Manager, start chess.Game, logger *log.Logger) (*ssh.Server, error) {
	return wish.NewServer(
		wish.WithAddress(cfg.SSHAddr()),
		wish.WithHostKeyPEM(hostKey),
		wish.WithMiddleware(
			bubbletea.Middleware(teaHandler(cfg.Mode, manager, start)),
			logging.MiddlewareWithLogger(logger.WithPrefix("ssh")),
		),
	)
}

// teaHandler starts one model per SSH session. In match mode the session
// user is queued for the next opponent and forfeits when the session ends.
func teaHandler(mode config.Mode, manager *lobby.Manager, start chess.Game) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		r := bubbletea.MakeRenderer(s)
		opts := []tea.ProgramOption{tea.WithAltScreen()}
		if mode == config.ModeHotSeat {
			return tui.NewHotSeat(start, r), opts
		}

		updates := make(chan lobby.Update, lobby.UpdateBuffer)
		player := manager.Enqueue(s.User(), updates)
		go func() {
			<-s.Context().Done()
			manager.Leave(player.ID)
			close(updates)
		}()
		return tui.NewMatch(manager, player, updates, r), opts
	}
}
