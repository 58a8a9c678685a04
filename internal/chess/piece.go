package chess

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	return 1 - c
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(c.String())), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "white", "w":
		*c = White
	case "black", "b":
		*c = Black
	default:
		return fmt.Errorf("unknown color %q", b)
	}
	return nil
}

type Kind uint8

const (
	Pawn Kind = iota
	Rook
	Knight
	Bishop
	Queen
	King
)

var allKinds = [...]Kind{Pawn, Rook, Knight, Bishop, Queen, King}

var kindNames = [...]string{
	Pawn:   "Pawn",
	Rook:   "Rook",
	Knight: "Knight",
	Bishop: "Bishop",
	Queen:  "Queen",
	King:   "King",
}

var kindLetters = [...]byte{
	Pawn:   'P',
	Rook:   'R',
	Knight: 'N',
	Bishop: 'B',
	Queen:  'Q',
	King:   'K',
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Letter is the upper-case notation letter for k.
func (k Kind) Letter() byte {
	return kindLetters[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown kind %d", k)
	}
	return []byte(strings.ToLower(kindNames[k])), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for _, kind := range allKinds {
		if strings.ToLower(kindNames[kind]) == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", b)
}

func kindFromLetter(r byte) (Kind, bool) {
	up := r &^ 0x20
	for _, kind := range allKinds {
		if kindLetters[kind] == up {
			return kind, true
		}
	}
	return 0, false
}

// KindSet is the set of kinds a single piece embodies. Iteration follows
// the order Pawn, Rook, Knight, Bishop, Queen, King.
type KindSet uint8

func KindsOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

func (s KindSet) With(k Kind) KindSet {
	return s | 1<<k
}

func (s KindSet) Union(o KindSet) KindSet {
	return s | o
}

func (s KindSet) Len() int {
	return bits.OnesCount8(uint8(s))
}

func (s KindSet) Kinds() []Kind {
	kinds := make([]Kind, 0, s.Len())
	for _, k := range allKinds {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (s KindSet) String() string {
	var b strings.Builder
	for i, k := range s.Kinds() {
		if i > 0 {
			b.WriteByte('+')
		}
		b.WriteByte(k.Letter())
	}
	return b.String()
}

// Piece occupies a board cell. The zero Piece is an empty cell.
type Piece struct {
	Color Color
	Kinds KindSet
}

func NewPiece(c Color, k Kind) Piece {
	return Piece{Color: c, Kinds: KindsOf(k)}
}

func (p Piece) IsEmpty() bool {
	return p.Kinds == 0
}

// IsKing reports whether the piece's kind set includes King.
func (p Piece) IsKing() bool {
	return p.Kinds.Has(King)
}

func (p Piece) IsFused() bool {
	return p.Kinds.Len() > 1
}

var whiteSymbols = [...]string{
	Pawn:   "♙",
	Rook:   "♖",
	Knight: "♘",
	Bishop: "♗",
	Queen:  "♕",
	King:   "♔",
}

var blackSymbols = [...]string{
	Pawn:   "♟",
	Rook:   "♜",
	Knight: "♞",
	Bishop: "♝",
	Queen:  "♛",
	King:   "♚",
}

// Symbol returns the chess glyph of the piece's strongest kind, or a space
// for an empty cell.
func (p Piece) Symbol() string {
	if p.IsEmpty() {
		return " "
	}
	kinds := p.Kinds.Kinds()
	top := kinds[len(kinds)-1]
	if p.Color == White {
		return whiteSymbols[top]
	}
	return blackSymbols[top]
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "Empty"
	}
	if !p.IsFused() {
		return fmt.Sprintf("%s %s", p.Color, p.Kinds.Kinds()[0])
	}
	return fmt.Sprintf("%s %s", p.Color, p.Kinds)
}

type singlePieceJSON struct {
	Color Color `json:"color"`
	Kind  Kind  `json:"kind"`
}

type fusedPieceJSON struct {
	Color      Color  `json:"color"`
	Kind       *Kind  `json:"kind,omitempty"`
	FusedKinds []Kind `json:"fusedKinds,omitempty"`
}

// MarshalJSON encodes an empty cell as null, a single piece as
// {color, kind} and a fused piece as {color, fusedKinds}.
func (p Piece) MarshalJSON() ([]byte, error) {
	switch {
	case p.IsEmpty():
		return []byte("null"), nil
	case p.IsFused():
		return json.Marshal(fusedPieceJSON{Color: p.Color, FusedKinds: p.Kinds.Kinds()})
	default:
		return json.Marshal(singlePieceJSON{Color: p.Color, Kind: p.Kinds.Kinds()[0]})
	}
}

func (p *Piece) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Piece{}
		return nil
	}
	var raw fusedPieceJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kinds := KindsOf(raw.FusedKinds...)
	if raw.Kind != nil {
		kinds = kinds.With(*raw.Kind)
	}
	if kinds == 0 {
		return fmt.Errorf("piece %s has no kind", b)
	}
	if kinds.Has(King) && kinds.Len() > 1 {
		return fmt.Errorf("piece %s fuses a king", b)
	}
	*p = Piece{Color: raw.Color, Kinds: kinds}
	return nil
}
