package chess

// PlayerMove is a move listed with its origin.
type PlayerMove struct {
	From     Position `json:"from"`
	To       Position `json:"to"`
	IsFusion bool     `json:"isFusion"`
}

// InCheck reports whether the king of color c is attacked by any opposing
// piece's raw moves. It does not depend on whose turn it is. A board with no
// king of that color is never in check.
func (b *Board) InCheck(c Color) bool {
	king, ok := b.KingPosition(c)
	if !ok {
		return false
	}
	for row := range Size {
		for col := range Size {
			p := b[row][col]
			if p.IsEmpty() || p.Color == c {
				continue
			}
			for _, m := range b.RawMoves(Position{row, col}) {
				if m.To() == king {
					return true
				}
			}
		}
	}
	return false
}

// LegalMoves returns the raw moves of the piece at from that do not leave
// its own king in check.
func (b *Board) LegalMoves(from Position) []Move {
	raw := b.RawMoves(from)
	if len(raw) == 0 {
		return nil
	}
	moves := make([]Move, 0, len(raw))
	for _, m := range raw {
		if !b.leavesKingInCheck(from, m) {
			moves = append(moves, m)
		}
	}
	return moves
}

// leavesKingInCheck plays m on b, checks the mover's king and puts both
// touched cells back, even if the check panics.
func (b *Board) leavesKingInCheck(from Position, m Move) bool {
	to := m.To()
	mover, target := b.At(from), b.At(to)
	defer func() {
		b.Set(from, mover)
		b.Set(to, target)
	}()

	b.apply(from, to, m.IsFusion)
	return b.InCheck(mover.Color)
}

// apply moves the piece at from onto to, fusing when requested and allowed.
func (b *Board) apply(from, to Position, fusion bool) {
	mover, target := b.At(from), b.At(to)
	if fusion && CanFuse(mover, target) {
		b.Set(to, Fuse(mover, target))
	} else {
		b.Set(to, mover)
	}
	b.Set(from, Piece{})
}

// AllLegalMoves lists every legal move for the pieces of color c, scanning
// row by row.
func (b *Board) AllLegalMoves(c Color) []PlayerMove {
	var all []PlayerMove
	for row := range Size {
		for col := range Size {
			from := Position{row, col}
			p := b.At(from)
			if p.IsEmpty() || p.Color != c {
				continue
			}
			for _, m := range b.LegalMoves(from) {
				all = append(all, PlayerMove{From: from, To: m.To(), IsFusion: m.IsFusion})
			}
		}
	}
	return all
}
