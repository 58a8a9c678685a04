package chess

// State is the serialized snapshot sent to UIs and peers:
//
//	{board, currentPlayer, selectedSquare, possibleMoves, gameStatus, isGameOver, winner}
//
// Board cells encode as null, {color, kind} or {color, fusedKinds}.
// State is output only; authoritative games are never rebuilt from one.
type State struct {
	Board          Board     `json:"board"`
	CurrentPlayer  Color     `json:"currentPlayer"`
	SelectedSquare *Position `json:"selectedSquare"`
	PossibleMoves  []Move    `json:"possibleMoves"`
	GameStatus     Status    `json:"gameStatus"`
	IsGameOver     bool      `json:"isGameOver"`
	Winner         *Color    `json:"winner"`
}

func (g Game) State() State {
	s := State{
		Board:         g.board,
		CurrentPlayer: g.turn,
		PossibleMoves: []Move{},
		GameStatus:    g.status,
		IsGameOver:    g.IsGameOver(),
	}
	if g.hasSelection {
		selected := g.selected
		s.SelectedSquare = &selected
		s.PossibleMoves = append(s.PossibleMoves, g.possible...)
	}
	if winner, ok := g.Winner(); ok {
		s.Winner = &winner
	}
	return s
}
