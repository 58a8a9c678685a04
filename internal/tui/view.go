package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/imjasonh/fusionchess/internal/chess"
)

const files = "abcdefgh"

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(m.styles.title.Render("Fusion Chess"))
	s.WriteString("\n")
	s.WriteString(m.header())
	s.WriteString("\n\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.board(), "  ", m.info()))
	s.WriteString("\n")
	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(m.styles.status.Render(m.message))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.styles.dim.Render(m.help()))
	s.WriteString("\n")
	return s.String()
}

func (m Model) header() string {
	if m.hotSeat() {
		return fmt.Sprintf("Hot seat: %s to move", m.game.Turn())
	}
	switch m.phase {
	case waiting:
		if pos := m.lobby.QueuePosition(m.player.ID); pos > 0 {
			return fmt.Sprintf("Waiting for an opponent... (position in queue: %d)", pos)
		}
		return "Waiting for an opponent..."
	case opponentGone:
		return "Your opponent has left"
	}
	if m.game.IsGameOver() {
		return fmt.Sprintf("You (%s) vs %s", m.color, m.opponent)
	}
	if m.game.Turn() == m.color {
		return fmt.Sprintf("You (%s) vs %s: your turn", m.color, m.opponent)
	}
	return fmt.Sprintf("You (%s) vs %s: %s's turn", m.color, m.opponent, m.opponent)
}

func (m Model) help() string {
	if m.hotSeat() {
		return "arrows/hjkl move · enter/space select · esc deselect · u undo · r reset · q quit"
	}
	return "arrows/hjkl move · enter/space select · esc deselect · r reset · q quit"
}

// board draws the grid from white's side, or black's when flipped.
func (m Model) board() string {
	rows, cols := make([]int, chess.Size), make([]int, chess.Size)
	for i := range chess.Size {
		rows[i], cols[i] = i, i
		if m.flipped() {
			rows[i], cols[i] = chess.Size-1-i, chess.Size-1-i
		}
	}

	targets := map[chess.Position]bool{} // destination -> is fusion
	selected, moves, hasSel := m.game.Selection()
	for _, mv := range moves {
		targets[mv.To()] = mv.IsFusion
	}

	var fileLine strings.Builder
	fileLine.WriteString("  ")
	for _, col := range cols {
		fmt.Fprintf(&fileLine, " %c ", files[col])
	}

	b := m.game.Board()
	lines := []string{fileLine.String()}
	for _, row := range rows {
		var line strings.Builder
		rank := chess.Size - row
		fmt.Fprintf(&line, "%d ", rank)
		for _, col := range cols {
			pos := chess.Position{Row: row, Col: col}
			style := m.styles.light
			if (row+col)%2 == 1 {
				style = m.styles.dark
			}
			fusion, isTarget := targets[pos]
			switch {
			case pos == m.cursor:
				style = m.styles.cursor
			case hasSel && pos == selected:
				style = m.styles.selected
			case isTarget && fusion:
				style = m.styles.fusion
			case isTarget:
				style = m.styles.target
			}
			line.WriteString(style.Render(m.glyph(b.At(pos))))
		}
		fmt.Fprintf(&line, " %d", rank)
		lines = append(lines, line.String())
	}
	lines = append(lines, fileLine.String())
	return strings.Join(lines, "\n")
}

func (m Model) glyph(p chess.Piece) string {
	switch {
	case p.IsEmpty():
		return " "
	case p.Color == chess.White:
		return m.styles.whitePiece.Render(p.Symbol())
	default:
		return m.styles.blackPiece.Render(p.Symbol())
	}
}

func (m Model) info() string {
	b := m.game.Board()
	lines := []string{
		"Turn:   " + m.game.Turn().String(),
		"Status: " + m.game.Status().String(),
	}
	if w, ok := m.game.Winner(); ok {
		lines = append(lines, "Winner: "+w.String())
	}
	lines = append(lines,
		"",
		"Cursor: "+m.cursor.String(),
		"Piece:  "+pieceLabel(b.At(m.cursor)),
	)

	if sq, moves, ok := m.game.Selection(); ok {
		lines = append(lines, "", "Selected: "+pieceLabel(b.At(sq))+" at "+sq.String())
		if len(moves) == 0 {
			lines = append(lines, "No legal moves")
		}
		var row []string
		for _, mv := range moves {
			label := mv.To().String()
			if mv.IsFusion {
				label += "+"
			}
			row = append(row, label)
			if len(row) == 5 {
				lines = append(lines, strings.Join(row, " "))
				row = nil
			}
		}
		if len(row) > 0 {
			lines = append(lines, strings.Join(row, " "))
		}
	}

	if last := m.lastMoveText(); last != "" {
		lines = append(lines, "", "Last move: "+last)
	}
	return m.styles.info.Render(strings.Join(lines, "\n"))
}

// pieceLabel names a piece, using R+N style labels for fused pieces.
func pieceLabel(p chess.Piece) string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.String()
}

func (m Model) lastMoveText() string {
	if m.lastMove != nil {
		return fmt.Sprintf("%s-%s by %s", m.lastMove.From, m.lastMove.To, m.lastMove.Player)
	}
	h := m.game.History()
	if len(h) == 0 {
		return ""
	}
	e := h[len(h)-1]
	if e.IsFusion {
		return fmt.Sprintf("%s-%s (fusion)", e.From, e.To)
	}
	return fmt.Sprintf("%s-%s", e.From, e.To)
}
