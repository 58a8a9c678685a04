package lobby

import "github.com/imjasonh/fusionchess/internal/chess"

// UpdateType names an event pushed to players. The values double as the
// WebSocket event names.
type UpdateType string

const (
	GameStarted        UpdateType = "gameStarted"
	GameStateUpdate    UpdateType = "gameStateUpdate"
	GameReset          UpdateType = "gameReset"
	OpponentLeft       UpdateType = "opponentLeft"
	PlayerDisconnected UpdateType = "playerDisconnected"
	PlayerReconnected  UpdateType = "playerReconnected"
)

// Update is an event delivered on a player's channel. Data is one of
// RoomView, MoveUpdate, ResetUpdate, LeaveUpdate or PlayerEvent.
type Update struct {
	Type       UpdateType
	Data       any
	FromPlayer string
}

// RoomView is a snapshot of a room. Game is the authoritative game value
// and encodes as its serialized state.
type RoomView struct {
	RoomID             string       `json:"roomId"`
	Players            []PlayerView `json:"players"`
	IsGameStarted      bool         `json:"isGameStarted"`
	Game               chess.Game   `json:"gameState"`
	WaitingForOpponent bool         `json:"waitingForOpponent"`
}

// LastMove describes the move that produced a MoveUpdate.
type LastMove struct {
	From   chess.Position `json:"from"`
	To     chess.Position `json:"to"`
	Player string         `json:"player"`
	Color  chess.Color    `json:"playerColor"`
}

type MoveUpdate struct {
	Game     chess.Game `json:"gameState"`
	LastMove LastMove   `json:"lastMove"`
}

type ResetUpdate struct {
	Game chess.Game `json:"gameState"`
}

// LeaveUpdate is sent to the remaining player when the opponent leaves.
// GameState is the final position with the forfeit recorded.
type LeaveUpdate struct {
	OpponentName  string      `json:"opponentName"`
	OpponentColor chess.Color `json:"opponentColor"`
	WinnerColor   chess.Color `json:"winnerColor"`
	GameState     chess.State `json:"gameState"`
}

type PlayerEvent struct {
	Name  string      `json:"name"`
	Color chess.Color `json:"color"`
}
