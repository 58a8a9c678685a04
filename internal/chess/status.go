package chess

import "fmt"

type Status uint8

const (
	Playing Status = iota
	Check
	Checkmate
	Stalemate
)

var statusNames = [...]string{
	Playing:   "playing",
	Check:     "check",
	Checkmate: "checkmate",
	Stalemate: "stalemate",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", s)
}

// Terminal reports whether no further moves are accepted.
func (s Status) Terminal() bool {
	return s == Checkmate || s == Stalemate
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown status %d", s)
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Evaluate classifies the position for the side to move.
func Evaluate(b *Board, toMove Color) Status {
	inCheck := b.InCheck(toMove)
	anyLegal := len(b.AllLegalMoves(toMove)) > 0

	switch {
	case !anyLegal && inCheck:
		return Checkmate
	case !anyLegal:
		return Stalemate
	case inCheck:
		return Check
	default:
		return Playing
	}
}
