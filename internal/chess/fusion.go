package chess

// CanFuse reports whether mover may merge into target: both occupied, same
// color, and neither includes a king.
func CanFuse(mover, target Piece) bool {
	return !mover.IsEmpty() && !target.IsEmpty() &&
		mover.Color == target.Color &&
		!mover.IsKing() && !target.IsKing()
}

// Fuse merges mover into target. The result keeps the mover's color and
// carries the union of both kind sets.
func Fuse(mover, target Piece) Piece {
	return Piece{
		Color: mover.Color,
		Kinds: mover.Kinds.Union(target.Kinds),
	}
}
