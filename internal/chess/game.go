package chess

import (
	"encoding/json"
	"fmt"
	"slices"
)

// HistoryEntry records one completed move. Captured holds whatever stood on
// the destination before the move: an enemy for a capture, the absorbed ally
// for a fusion, nil for a quiet move.
type HistoryEntry struct {
	From     Position `json:"from"`
	To       Position `json:"to"`
	Piece    Piece    `json:"piece"`
	Captured *Piece   `json:"capturedPiece"`
	IsFusion bool     `json:"isFusion"`
}

// Game is an immutable game snapshot. Every operation returns a new Game
// and leaves the receiver untouched, so snapshots can be shared between
// goroutines and sent across the network without copying.
type Game struct {
	board   Board
	turn    Color
	status  Status
	history []HistoryEntry

	selected     Position
	hasSelection bool
	possible     []Move
}

// NewGame returns the standard starting position with White to move.
func NewGame() Game {
	return NewGameFromBoard(InitialBoard(), White)
}

// NewGameFromBoard starts a game from an arbitrary position. The status is
// evaluated immediately for the side to move.
func NewGameFromBoard(b Board, toMove Color) Game {
	g := Game{board: b, turn: toMove}
	g.status = Evaluate(&g.board, toMove)
	return g
}

// Reset returns a fresh game; the receiver is not consulted.
func (g Game) Reset() Game {
	return NewGame()
}

func (g Game) Board() Board   { return g.board }
func (g Game) Turn() Color    { return g.turn }
func (g Game) Status() Status { return g.status }

func (g Game) IsGameOver() bool {
	return g.status.Terminal()
}

// Winner returns the side that delivered checkmate. It reports false for
// stalemate and for games still in progress.
func (g Game) Winner() (Color, bool) {
	if g.status != Checkmate {
		return 0, false
	}
	return g.turn.Opponent(), true
}

// InCheck reports whether color c's king is attacked in this position.
func (g Game) InCheck(c Color) bool {
	return g.board.InCheck(c)
}

// History returns a copy of the move log.
func (g Game) History() []HistoryEntry {
	history := make([]HistoryEntry, len(g.history))
	for i, e := range g.history {
		if e.Captured != nil {
			captured := *e.Captured
			e.Captured = &captured
		}
		history[i] = e
	}
	return history
}

// Moves returns the move log as origin/destination pairs, suitable for
// Replay.
func (g Game) Moves() []PlayerMove {
	moves := make([]PlayerMove, len(g.history))
	for i, e := range g.history {
		moves[i] = PlayerMove{From: e.From, To: e.To, IsFusion: e.IsFusion}
	}
	return moves
}

// Selection returns the selected square and its legal moves, if any.
func (g Game) Selection() (Position, []Move, bool) {
	if !g.hasSelection {
		return Position{}, nil, false
	}
	return g.selected, slices.Clone(g.possible), true
}

// PossibleMoves returns the legal destinations of the piece at pos. An empty
// square yields no moves.
func (g Game) PossibleMoves(pos Position) ([]Move, error) {
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoordinate, pos)
	}
	return g.board.LegalMoves(pos), nil
}

// AllPossibleMoves returns every legal move available to color c.
func (g Game) AllPossibleMoves(c Color) []PlayerMove {
	return g.board.AllLegalMoves(c)
}

// Select drives the selection state machine. With nothing selected, picking
// a piece of the side to move selects it; anything else is ignored. With a
// piece selected, picking one of its legal destinations plays the move and
// moved is true; any other square clears the selection.
func (g Game) Select(pos Position) (next Game, moved bool, err error) {
	if !pos.Valid() {
		return g, false, fmt.Errorf("%w: %s", ErrInvalidCoordinate, pos)
	}
	if g.IsGameOver() {
		return g, false, ErrGameOver
	}

	if g.hasSelection {
		from := g.selected
		for _, m := range g.possible {
			if m.To() == pos {
				return g.play(from, m), true, nil
			}
		}
		g.clearSelection()
		return g, false, nil
	}

	p := g.board.At(pos)
	if p.IsEmpty() || p.Color != g.turn {
		return g, false, nil
	}
	g.selected, g.hasSelection = pos, true
	g.possible = g.board.LegalMoves(pos)
	return g, false, nil
}

// Deselect returns g with no square selected.
func (g Game) Deselect() Game {
	g.clearSelection()
	return g
}

// Apply plays from→to for the side to move after checking it against the
// legal moves of this position. It is the transition used for moves that
// arrive from elsewhere, such as a remote player.
func (g Game) Apply(from, to Position) (Game, error) {
	if !from.Valid() || !to.Valid() {
		return g, fmt.Errorf("%w: %s to %s", ErrInvalidCoordinate, from, to)
	}
	if g.IsGameOver() {
		return g, ErrGameOver
	}
	p := g.board.At(from)
	if p.IsEmpty() {
		return g, fmt.Errorf("%w: %s", ErrNoPiece, from)
	}
	if p.Color != g.turn {
		return g, fmt.Errorf("%w: %s on %s, %s to move", ErrNotYourPiece, p, from, g.turn)
	}
	for _, m := range g.board.LegalMoves(from) {
		if m.To() == to {
			return g.play(from, m), nil
		}
	}
	return g, fmt.Errorf("%w: %s to %s", ErrIllegalMove, from, to)
}

// play commits a move already known to be legal.
func (g Game) play(from Position, m Move) Game {
	to := m.To()
	entry := HistoryEntry{
		From:     from,
		To:       to,
		Piece:    g.board.At(from),
		IsFusion: m.IsFusion,
	}
	if target := g.board.At(to); !target.IsEmpty() {
		entry.Captured = &target
	}

	g.board.apply(from, to, m.IsFusion)
	g.history = append(slices.Clip(g.history), entry)
	g.turn = g.turn.Opponent()
	g.status = Evaluate(&g.board, g.turn)
	g.clearSelection()
	return g
}

// Undo takes back the last move. It is allowed after the game has ended.
func (g Game) Undo() (Game, error) {
	if len(g.history) == 0 {
		return g, ErrNoHistory
	}
	last := g.history[len(g.history)-1]

	var restored Piece
	if last.Captured != nil {
		restored = *last.Captured
	}
	g.board.Set(last.From, last.Piece)
	g.board.Set(last.To, restored)
	g.history = slices.Clip(g.history[:len(g.history)-1])
	g.turn = last.Piece.Color
	g.status = Evaluate(&g.board, g.turn)
	g.clearSelection()
	return g, nil
}

// Replay plays moves in order from the starting position.
func Replay(moves []PlayerMove) (Game, error) {
	g := NewGame()
	for i, m := range moves {
		next, err := g.Apply(m.From, m.To)
		if err != nil {
			return g, fmt.Errorf("move %d (%s-%s): %w", i+1, m.From, m.To, err)
		}
		g = next
	}
	return g, nil
}

func (g *Game) clearSelection() {
	g.selected, g.hasSelection = Position{}, false
	g.possible = nil
}

// MarshalJSON encodes the game as its State.
func (g Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.State())
}
