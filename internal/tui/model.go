// Package tui is the terminal front end served over SSH.
package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/imjasonh/fusionchess/internal/chess"
	"github.com/imjasonh/fusionchess/internal/lobby"
)

type phase int

const (
	waiting phase = iota
	playing
	opponentGone
)

// Model is a bubbletea model for one terminal. In hot-seat mode it owns its
// game and both colors move from the same keyboard. In match mode the game
// lives in the lobby; the model only keeps the latest authoritative
// snapshot and a local selection on top of it.
type Model struct {
	game   chess.Game
	cursor chess.Position
	styles styles

	// match mode
	lobby    *lobby.Manager
	player   *lobby.Player
	updates  <-chan lobby.Update
	phase    phase
	color    chess.Color
	opponent string
	lastMove *lobby.LastMove

	message string
}

// NewHotSeat returns a model playing g locally.
func NewHotSeat(g chess.Game, r *lipgloss.Renderer) Model {
	return Model{
		game:   g,
		cursor: chess.Position{Row: 6, Col: 4},
		styles: newStyles(r),
		phase:  playing,
	}
}

// NewMatch returns a model for player, who is already queued or seated in
// m and receives its updates on updates.
func NewMatch(m *lobby.Manager, player *lobby.Player, updates <-chan lobby.Update, r *lipgloss.Renderer) Model {
	return Model{
		game:    chess.NewGame(),
		cursor:  chess.Position{Row: 6, Col: 4},
		styles:  newStyles(r),
		lobby:   m,
		player:  player,
		updates: updates,
		phase:   waiting,
		color:   player.Color(),
	}
}

func (m Model) hotSeat() bool { return m.lobby == nil }

// Game returns the snapshot the model is showing.
func (m Model) Game() chess.Game { return m.game }

func (m Model) Init() tea.Cmd {
	if m.hotSeat() {
		return nil
	}
	return waitForUpdate(m.updates)
}

type updatesClosed struct{}

func waitForUpdate(ch <-chan lobby.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosed{}
		}
		return u
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case lobby.Update:
		m = m.handleUpdate(msg)
		return m, waitForUpdate(m.updates)
	case updatesClosed:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1, 0)
	case "down", "j":
		m.moveCursor(1, 0)
	case "left", "h":
		m.moveCursor(0, -1)
	case "right", "l":
		m.moveCursor(0, 1)
	case "esc":
		m.game = m.game.Deselect()
	case "enter", " ":
		m = m.activate()
	case "r":
		m = m.reset()
	case "u":
		if m.hotSeat() {
			m = m.undo()
		}
	}
	return m, nil
}

// flipped reports whether the board is drawn from black's side.
func (m Model) flipped() bool {
	return !m.hotSeat() && m.color == chess.Black
}

// moveCursor moves by screen direction.
func (m *Model) moveCursor(dr, dc int) {
	if m.flipped() {
		dr, dc = -dr, -dc
	}
	if next := m.cursor.Add(dr, dc); next.Valid() {
		m.cursor = next
	}
}

// activate is enter/space on the cursor square.
func (m Model) activate() Model {
	m.message = ""
	if m.hotSeat() {
		next, _, err := m.game.Select(m.cursor)
		if err != nil {
			m.message = errMessage(err)
			return m
		}
		m.game = next
		return m
	}

	if m.phase != playing {
		return m
	}
	if m.game.Turn() != m.color {
		m.message = "Waiting for your opponent"
		return m
	}
	if from, moves, ok := m.game.Selection(); ok {
		for _, mv := range moves {
			if mv.To() == m.cursor {
				return m.submit(from, m.cursor)
			}
		}
	}
	next, _, err := m.game.Select(m.cursor)
	if err != nil {
		m.message = errMessage(err)
		return m
	}
	m.game = next
	return m
}

// submit sends a move to the lobby and adopts the room's resulting state.
func (m Model) submit(from, to chess.Position) Model {
	g, err := m.lobby.MakeMove(m.player.ID, from, to)
	if err != nil {
		m.message = errMessage(err)
		m.game = m.game.Deselect()
		return m
	}
	m.game = g
	m.lastMove = &lobby.LastMove{From: from, To: to, Player: m.player.Name, Color: m.color}
	return m
}

func (m Model) reset() Model {
	m.message = ""
	if m.hotSeat() {
		m.game = m.game.Reset()
		m.cursor = chess.Position{Row: 6, Col: 4}
		return m
	}
	g, err := m.lobby.Reset(m.player.ID)
	if err != nil {
		m.message = errMessage(err)
		return m
	}
	m.game, m.lastMove = g, nil
	return m
}

func (m Model) undo() Model {
	next, err := m.game.Undo()
	if err != nil {
		m.message = errMessage(err)
		return m
	}
	m.game, m.message = next, ""
	return m
}

func (m Model) handleUpdate(u lobby.Update) Model {
	switch u.Type {
	case lobby.GameStarted:
		view, ok := u.Data.(lobby.RoomView)
		if !ok {
			return m
		}
		m.phase = playing
		m.game = view.Game
		m.lastMove = nil
		m.color = m.player.Color()
		for _, p := range view.Players {
			if p.ID != m.player.ID {
				m.opponent = p.Name
			}
		}
		if m.color == chess.Black {
			m.cursor = chess.Position{Row: 1, Col: 4}
		}
		m.message = fmt.Sprintf("Game on! You play %s", m.color)

	case lobby.GameStateUpdate:
		if mu, ok := u.Data.(lobby.MoveUpdate); ok {
			m.game = mu.Game
			last := mu.LastMove
			m.lastMove = &last
			m.message = ""
		}

	case lobby.GameReset:
		if ru, ok := u.Data.(lobby.ResetUpdate); ok {
			m.game = ru.Game
			m.lastMove = nil
			m.message = "The game was reset"
		}

	case lobby.OpponentLeft:
		if lu, ok := u.Data.(lobby.LeaveUpdate); ok {
			m.phase = opponentGone
			m.message = fmt.Sprintf("%s left the game. You win!", lu.OpponentName)
		}

	case lobby.PlayerDisconnected:
		if ev, ok := u.Data.(lobby.PlayerEvent); ok {
			m.message = fmt.Sprintf("%s disconnected", ev.Name)
		}

	case lobby.PlayerReconnected:
		if ev, ok := u.Data.(lobby.PlayerEvent); ok {
			m.message = fmt.Sprintf("%s reconnected", ev.Name)
		}
	}
	return m
}

func errMessage(err error) string {
	switch {
	case errors.Is(err, chess.ErrGameOver):
		return "The game is over. Press r to play again"
	case errors.Is(err, chess.ErrNoHistory):
		return "Nothing to undo"
	case errors.Is(err, lobby.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, lobby.ErrGameNotStarted):
		return "The game has not started"
	}
	return err.Error()
}
