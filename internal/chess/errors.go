package chess

import "errors"

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrGameOver          = errors.New("game is over")
	ErrNoPiece           = errors.New("no piece on square")
	ErrNotYourPiece      = errors.New("piece belongs to the other side")
	ErrIllegalMove       = errors.New("illegal move")
	ErrNoHistory         = errors.New("no moves to undo")
)
