package chess

import (
	"fmt"
	"strings"
)

// Size is the number of rows and columns on the board.
const Size = 8

// Position addresses a board cell. Row 0 is black's back rank and row 7 is
// white's.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Add returns p shifted by dr rows and dc columns. The result may be off the
// board.
func (p Position) Add(dr, dc int) Position {
	return Position{p.Row + dr, p.Col + dc}
}

// String returns algebraic notation, e.g. "e2" for Position{6, 4}.
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return fmt.Sprintf("%c%d", 'a'+p.Col, Size-p.Row)
}

// ParsePosition parses algebraic notation such as "e2".
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	pos := Position{Row: Size - int(s[1]-'0'), Col: int(s[0] - 'a')}
	if !pos.Valid() {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return pos, nil
}

type Board [Size][Size]Piece

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// InitialBoard returns the standard starting position. It is the only
// definition of the start position; the engine, the lobby and the wire
// layer all derive from it.
func InitialBoard() Board {
	var board Board
	for col := range Size {
		board[0][col] = NewPiece(Black, backRank[col])
		board[1][col] = NewPiece(Black, Pawn)
		board[6][col] = NewPiece(White, Pawn)
		board[7][col] = NewPiece(White, backRank[col])
	}
	return board
}

// At returns the piece at pos, or an empty Piece when pos is off the board.
func (b *Board) At(pos Position) Piece {
	if !pos.Valid() {
		return Piece{}
	}
	return b[pos.Row][pos.Col]
}

func (b *Board) Set(pos Position, piece Piece) {
	if pos.Valid() {
		b[pos.Row][pos.Col] = piece
	}
}

// KingPosition locates the cell whose piece belongs to c and includes King.
func (b *Board) KingPosition(c Color) (Position, bool) {
	for row := range Size {
		for col := range Size {
			p := b[row][col]
			if p.IsKing() && p.Color == c {
				return Position{row, col}, true
			}
		}
	}
	return Position{-1, -1}, false
}

// String draws the board one row per line, row 0 first. Empty cells are
// '.', white pieces upper case, black lower case, and fused pieces are
// wrapped in parentheses, e.g. "(RN)".
func (b Board) String() string {
	var s strings.Builder
	for row := range Size {
		for col := range Size {
			writeCell(&s, b[row][col])
		}
		s.WriteByte('\n')
	}
	return s.String()
}

func writeCell(s *strings.Builder, p Piece) {
	if p.IsEmpty() {
		s.WriteByte('.')
		return
	}
	if p.IsFused() {
		s.WriteByte('(')
	}
	for _, k := range p.Kinds.Kinds() {
		letter := k.Letter()
		if p.Color == Black {
			letter |= 0x20
		}
		s.WriteByte(letter)
	}
	if p.IsFused() {
		s.WriteByte(')')
	}
}

// ParseBoard reads the diagram produced by Board.String. Blank lines and
// spaces are ignored.
func ParseBoard(diagram string) (Board, error) {
	var board Board
	row := 0
	for line := range strings.Lines(diagram) {
		line = strings.ReplaceAll(strings.TrimSpace(line), " ", "")
		if line == "" {
			continue
		}
		if row == Size {
			return Board{}, fmt.Errorf("diagram has more than %d rows", Size)
		}
		cells, err := parseRow(line)
		if err != nil {
			return Board{}, fmt.Errorf("row %d: %w", row, err)
		}
		board[row] = cells
		row++
	}
	if row != Size {
		return Board{}, fmt.Errorf("diagram has %d rows, want %d", row, Size)
	}
	return board, nil
}

func parseRow(line string) ([Size]Piece, error) {
	var cells [Size]Piece
	col := 0
	for i := 0; i < len(line); i++ {
		if col == Size {
			return cells, fmt.Errorf("more than %d cells in %q", Size, line)
		}
		switch line[i] {
		case '.':
		case '(':
			end := strings.IndexByte(line[i:], ')')
			if end < 0 {
				return cells, fmt.Errorf("unterminated fused piece in %q", line)
			}
			p, err := parsePiece(line[i+1 : i+end])
			if err != nil {
				return cells, err
			}
			if p.IsKing() && p.IsFused() {
				return cells, fmt.Errorf("king cannot be fused: %q", line[i:i+end+1])
			}
			cells[col] = p
			i += end
		default:
			p, err := parsePiece(line[i : i+1])
			if err != nil {
				return cells, err
			}
			cells[col] = p
		}
		col++
	}
	if col != Size {
		return cells, fmt.Errorf("%d cells in %q, want %d", col, line, Size)
	}
	return cells, nil
}

func parsePiece(letters string) (Piece, error) {
	if letters == "" {
		return Piece{}, fmt.Errorf("empty fused piece")
	}
	var p Piece
	for i := 0; i < len(letters); i++ {
		kind, ok := kindFromLetter(letters[i])
		if !ok {
			return Piece{}, fmt.Errorf("unknown piece letter %q", letters[i])
		}
		color := White
		if letters[i] >= 'a' {
			color = Black
		}
		if i > 0 && color != p.Color {
			return Piece{}, fmt.Errorf("mixed colors in %q", letters)
		}
		p.Color = color
		p.Kinds = p.Kinds.With(kind)
	}
	return p, nil
}
