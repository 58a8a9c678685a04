package wsapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/imjasonh/fusionchess/internal/chess"
	"github.com/imjasonh/fusionchess/internal/lobby"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newServer(t *testing.T, allowOrigin string) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	srv := httptest.NewServer(NewHandler(lobby.NewManager(logger), logger, allowOrigin))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// dial connects a peer and consumes the connected greeting.
func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	expect(t, c, "connected")
	return c
}

func send(t *testing.T, c *websocket.Conn, typ string, data any) {
	t.Helper()
	if err := c.WriteJSON(map[string]any{"type": typ, "data": data}); err != nil {
		t.Fatalf("WriteJSON(%s): %v", typ, err)
	}
}

func expect(t *testing.T, c *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := c.ReadJSON(&f); err != nil {
		t.Fatalf("waiting for %s: %v", typ, err)
	}
	if f.Type != typ {
		t.Fatalf("got %s %s, want %s", f.Type, f.Data, typ)
	}
	return f.Data
}

func unmarshal[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal %s: %v", data, err)
	}
	return v
}

type roomJSON struct {
	RoomID             string `json:"roomId"`
	IsGameStarted      bool   `json:"isGameStarted"`
	WaitingForOpponent bool   `json:"waitingForOpponent"`
	Players            []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"players"`
}

type stateJSON struct {
	Board          [8][8]json.RawMessage `json:"board"`
	CurrentPlayer  string                `json:"currentPlayer"`
	SelectedSquare *chess.Position       `json:"selectedSquare"`
	PossibleMoves  []chess.Move          `json:"possibleMoves"`
	GameStatus     string                `json:"gameStatus"`
	IsGameOver     bool                  `json:"isGameOver"`
	Winner         *string               `json:"winner"`
}

// startGame creates a room as alice, joins it as bob and returns both
// peers after their gameStarted frames.
func startGame(t *testing.T, srv *httptest.Server) (roomID string, host, guest *websocket.Conn) {
	t.Helper()
	host = dial(t, srv)
	send(t, host, "createRoom", map[string]string{"playerName": "alice"})
	created := unmarshal[roomJSON](t, expect(t, host, "roomCreated"))
	if !created.WaitingForOpponent || created.IsGameStarted || len(created.RoomID) != 6 {
		t.Fatalf("roomCreated = %+v", created)
	}

	guest = dial(t, srv)
	send(t, guest, "joinRoom", map[string]string{"roomId": created.RoomID, "playerName": "bob"})
	for _, c := range []*websocket.Conn{host, guest} {
		started := unmarshal[roomJSON](t, expect(t, c, "gameStarted"))
		if !started.IsGameStarted || len(started.Players) != 2 {
			t.Fatalf("gameStarted = %+v", started)
		}
	}
	return created.RoomID, host, guest
}

func TestMovesAreAuthoritative(t *testing.T) {
	srv := newServer(t, "")
	_, host, guest := startGame(t, srv)

	send(t, guest, "makeMove", map[string]any{
		"from": chess.Position{Row: 1, Col: 4},
		"to":   chess.Position{Row: 3, Col: 4},
	})
	if msg := unmarshal[string](t, expect(t, guest, "moveError")); !strings.Contains(msg, "not your turn") {
		t.Errorf("moveError = %q", msg)
	}

	send(t, host, "makeMove", map[string]any{"from": chess.Position{Row: 6, Col: 4}})
	expect(t, host, "moveError")

	// The forged state must be ignored in favor of the engine's.
	send(t, host, "makeMove", map[string]any{
		"from": chess.Position{Row: 6, Col: 4},
		"to":   chess.Position{Row: 4, Col: 4},
		"gameState": map[string]any{
			"currentPlayer": "white",
			"isGameOver":    true,
			"winner":        "white",
		},
	})
	for _, c := range []*websocket.Conn{host, guest} {
		upd := unmarshal[struct {
			GameState stateJSON `json:"gameState"`
			LastMove  struct {
				From        chess.Position `json:"from"`
				To          chess.Position `json:"to"`
				Player      string         `json:"player"`
				PlayerColor string         `json:"playerColor"`
			} `json:"lastMove"`
		}](t, expect(t, c, "gameStateUpdate"))

		s := upd.GameState
		if s.CurrentPlayer != "black" || s.IsGameOver || s.Winner != nil || s.GameStatus != "playing" {
			t.Errorf("state = %+v", s)
		}
		if got := string(s.Board[4][4]); got != `{"color":"white","kind":"pawn"}` {
			t.Errorf("e4 = %s", got)
		}
		if got := string(s.Board[6][4]); got != "null" {
			t.Errorf("e2 = %s", got)
		}
		if upd.LastMove.Player != "alice" || upd.LastMove.PlayerColor != "white" {
			t.Errorf("lastMove = %+v", upd.LastMove)
		}
	}

	send(t, guest, "selectSquare", chess.Position{Row: 1, Col: 4})
	sel := unmarshal[stateJSON](t, expect(t, guest, "selection"))
	if sel.SelectedSquare == nil || *sel.SelectedSquare != (chess.Position{Row: 1, Col: 4}) {
		t.Errorf("selectedSquare = %v", sel.SelectedSquare)
	}
	want := []chess.Move{{Row: 2, Col: 4}, {Row: 3, Col: 4}}
	if diff := cmp.Diff(want, sel.PossibleMoves); diff != "" {
		t.Errorf("possibleMoves mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinErrors(t *testing.T) {
	srv := newServer(t, "")
	roomID, _, _ := startGame(t, srv)

	c := dial(t, srv)
	send(t, c, "joinRoom", map[string]string{"roomId": "NOPE00", "playerName": "carol"})
	if msg := unmarshal[string](t, expect(t, c, "joinError")); msg != lobby.ErrRoomNotFound.Error() {
		t.Errorf("joinError = %q", msg)
	}
	send(t, c, "joinRoom", map[string]string{"roomId": roomID, "playerName": "carol"})
	if msg := unmarshal[string](t, expect(t, c, "joinError")); msg != lobby.ErrRoomFull.Error() {
		t.Errorf("joinError = %q", msg)
	}

	host := dial(t, srv)
	send(t, host, "createRoom", "dave")
	created := unmarshal[roomJSON](t, expect(t, host, "roomCreated"))
	send(t, c, "joinRoom", map[string]string{"roomId": created.RoomID, "playerName": ""})
	if msg := unmarshal[string](t, expect(t, c, "joinError")); msg != errNameRequired.Error() {
		t.Errorf("joinError = %q", msg)
	}
	send(t, c, "joinRoom", map[string]string{"roomId": created.RoomID, "playerName": "dave"})
	if msg := unmarshal[string](t, expect(t, c, "joinError")); msg != lobby.ErrNameTaken.Error() {
		t.Errorf("joinError = %q", msg)
	}
}

func TestRoomsListAndStatus(t *testing.T) {
	srv := newServer(t, "")
	host := dial(t, srv)
	send(t, host, "createRoom", "alice")
	created := unmarshal[roomJSON](t, expect(t, host, "roomCreated"))

	c := dial(t, srv)
	send(t, c, "getRooms", nil)
	rooms := unmarshal[[]lobby.OpenRoom](t, expect(t, c, "roomsList"))
	want := []lobby.OpenRoom{{ID: created.RoomID, HostName: "alice", PlayerCount: 1}}
	if diff := cmp.Diff(want, rooms); diff != "" {
		t.Errorf("roomsList mismatch (-want +got):\n%s", diff)
	}

	send(t, c, "checkRoomStatus", map[string]string{"roomId": created.RoomID})
	if got := unmarshal[lobby.RoomStatus](t, expect(t, c, "roomStatusResult")); got != (lobby.RoomStatus{Exists: true}) {
		t.Errorf("roomStatusResult = %+v", got)
	}
	send(t, c, "checkRoomStatus", map[string]string{"roomId": "ZZZZZZ"})
	if got := unmarshal[lobby.RoomStatus](t, expect(t, c, "roomStatusResult")); got.Exists {
		t.Errorf("roomStatusResult for missing room = %+v", got)
	}
}

func TestDisconnectAndRejoin(t *testing.T) {
	srv := newServer(t, "")
	roomID, host, guest := startGame(t, srv)

	guest.Close()
	ev := unmarshal[lobby.PlayerEvent](t, expect(t, host, "playerDisconnected"))
	if ev.Name != "bob" || ev.Color != chess.Black {
		t.Errorf("playerDisconnected = %+v", ev)
	}

	again := dial(t, srv)
	send(t, again, "rejoinRoom", map[string]string{"roomId": roomID, "playerName": "bob"})
	res := unmarshal[struct {
		Success     bool       `json:"success"`
		GameStarted bool       `json:"gameStarted"`
		GameState   *stateJSON `json:"gameState"`
	}](t, expect(t, again, "rejoinRoomResult"))
	if !res.Success || !res.GameStarted || res.GameState == nil || res.GameState.CurrentPlayer != "white" {
		t.Errorf("rejoinRoomResult = %+v", res)
	}
	expect(t, again, "gameStarted")
	expect(t, host, "playerReconnected")

	send(t, host, "makeMove", map[string]any{
		"from": chess.Position{Row: 7, Col: 6},
		"to":   chess.Position{Row: 5, Col: 5},
	})
	expect(t, host, "gameStateUpdate")
	expect(t, again, "gameStateUpdate")

	send(t, again, "rejoinRoom", map[string]string{"roomId": roomID, "playerName": "mallory"})
	if res := unmarshal[struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}](t, expect(t, again, "rejoinRoomResult")); res.Success || res.Error == "" {
		t.Errorf("rejoin as stranger = %+v", res)
	}
}

func TestLeaveGame(t *testing.T) {
	srv := newServer(t, "")
	_, host, guest := startGame(t, srv)

	send(t, host, "leaveGame", nil)
	left := unmarshal[struct {
		OpponentName string      `json:"opponentName"`
		WinnerColor  chess.Color `json:"winnerColor"`
		GameState    stateJSON   `json:"gameState"`
	}](t, expect(t, guest, "opponentLeft"))
	if left.OpponentName != "alice" || left.WinnerColor != chess.Black {
		t.Errorf("opponentLeft = %+v", left)
	}
	if !left.GameState.IsGameOver || left.GameState.Winner == nil || *left.GameState.Winner != "black" {
		t.Errorf("forfeit not recorded: %+v", left.GameState)
	}

	send(t, guest, "resetGame", nil)
	if msg := unmarshal[struct {
		Message string `json:"message"`
	}](t, expect(t, guest, "error")); msg.Message != lobby.ErrGameNotStarted.Error() {
		t.Errorf("resetGame error = %q", msg.Message)
	}
}

func TestUnknownEvent(t *testing.T) {
	srv := newServer(t, "")
	c := dial(t, srv)
	send(t, c, "castle", nil)
	expect(t, c, "error")
	send(t, c, "makeMove", map[string]any{})
	expect(t, c, "moveError")
}

func TestOriginCheck(t *testing.T) {
	srv := newServer(t, "https://chess.example")

	h := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err == nil {
		t.Fatal("cross-origin dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	h = http.Header{"Origin": {"https://chess.example"}}
	c, _, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err != nil {
		t.Fatalf("same-origin dial: %v", err)
	}
	defer c.Close()
	expect(t, c, "connected")
}
