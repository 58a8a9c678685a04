package chess

// Move is a candidate destination for the piece on some origin square.
// IsFusion is set only when the destination holds an allied non-king piece.
type Move struct {
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	IsFusion bool `json:"isFusion"`
}

func (m Move) To() Position {
	return Position{m.Row, m.Col}
}

type offset struct{ dr, dc int }

var (
	rookDirections   = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirections = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	knightOffsets    = []offset{
		{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
		{1, -2}, {1, 2}, {2, -1}, {2, 1},
	}
	kingOffsets = []offset{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
)

// RawMoves returns the destinations of the piece at from, ignoring whether
// they leave its own king attacked. Moves of every kind in the piece's kind
// set are merged; when two kinds reach the same square the first one wins.
func (b *Board) RawMoves(from Position) []Move {
	p := b.At(from)
	if p.IsEmpty() {
		return nil
	}

	var seen [Size][Size]bool
	var moves []Move
	for _, kind := range p.Kinds.Kinds() {
		for _, m := range b.kindMoves(kind, from, p.Color) {
			if seen[m.Row][m.Col] {
				continue
			}
			seen[m.Row][m.Col] = true
			moves = append(moves, m)
		}
	}
	return moves
}

func (b *Board) kindMoves(kind Kind, from Position, color Color) []Move {
	switch kind {
	case Pawn:
		return b.pawnMoves(from, color)
	case Rook:
		return b.slide(from, color, rookDirections, nil)
	case Knight:
		return b.step(from, color, knightOffsets)
	case Bishop:
		return b.slide(from, color, bishopDirections, nil)
	case Queen:
		moves := b.slide(from, color, rookDirections, nil)
		return b.slide(from, color, bishopDirections, moves)
	case King:
		return b.kingMoves(from, color)
	}
	return nil
}

// landing classifies to for a non-king mover of the given color: a plain
// move onto an empty square, a capture of an enemy, or a fusion with an
// allied non-king. Landing on an allied king is never allowed.
func (b *Board) landing(mover Color, to Position) (Move, bool) {
	target := b.At(to)
	switch {
	case target.IsEmpty(), target.Color != mover:
		return Move{Row: to.Row, Col: to.Col}, true
	case target.IsKing():
		return Move{}, false
	default:
		return Move{Row: to.Row, Col: to.Col, IsFusion: true}, true
	}
}

func pawnDirection(c Color) (dir, startRow int) {
	if c == White {
		return -1, 6
	}
	return 1, 1
}

func (b *Board) pawnMoves(from Position, color Color) []Move {
	var moves []Move
	dir, startRow := pawnDirection(color)

	one := from.Add(dir, 0)
	if one.Valid() && b.At(one).IsEmpty() {
		moves = append(moves, Move{Row: one.Row, Col: one.Col})

		two := from.Add(2*dir, 0)
		if from.Row == startRow && b.At(two).IsEmpty() {
			moves = append(moves, Move{Row: two.Row, Col: two.Col})
		}
	}

	for _, dc := range [...]int{-1, 1} {
		to := from.Add(dir, dc)
		if !to.Valid() || b.At(to).IsEmpty() {
			continue
		}
		if m, ok := b.landing(color, to); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

func (b *Board) slide(from Position, color Color, dirs []offset, moves []Move) []Move {
	for _, d := range dirs {
		for to := from.Add(d.dr, d.dc); to.Valid(); to = to.Add(d.dr, d.dc) {
			if m, ok := b.landing(color, to); ok {
				moves = append(moves, m)
			}
			if !b.At(to).IsEmpty() {
				break
			}
		}
	}
	return moves
}

func (b *Board) step(from Position, color Color, offsets []offset) []Move {
	var moves []Move
	for _, d := range offsets {
		to := from.Add(d.dr, d.dc)
		if !to.Valid() {
			continue
		}
		if m, ok := b.landing(color, to); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

// Kings never fuse, so allied squares are simply blocked.
func (b *Board) kingMoves(from Position, color Color) []Move {
	var moves []Move
	for _, d := range kingOffsets {
		to := from.Add(d.dr, d.dc)
		if !to.Valid() {
			continue
		}
		if target := b.At(to); target.IsEmpty() || target.Color != color {
			moves = append(moves, Move{Row: to.Row, Col: to.Col})
		}
	}
	return moves
}
