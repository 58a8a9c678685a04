// Package wsapi exposes the lobby to browser peers over a WebSocket. Every
// frame is a JSON envelope {"type": ..., "data": ...}.
package wsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/imjasonh/fusionchess/internal/chess"
	"github.com/imjasonh/fusionchess/internal/lobby"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

var errNameRequired = errors.New("playerName is required")

// Envelope is an inbound frame. Data is decoded per event type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Handler upgrades requests and serves one lobby session per connection.
type Handler struct {
	lobby    *lobby.Manager
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler. When allowOrigin is non-empty, browser
// requests from any other origin are refused.
func NewHandler(m *lobby.Manager, logger *log.Logger, allowOrigin string) *Handler {
	return &Handler{
		lobby: m,
		log:   logger.WithPrefix("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == "" || origin == "" || origin == allowOrigin
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &conn{
		h:       h,
		ws:      ws,
		id:      uuid.NewString(),
		updates: make(chan lobby.Update, lobby.UpdateBuffer),
		replies: make(chan outbound, lobby.UpdateBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h.log.Info("peer connected", "conn", c.id, "origin", r.Header.Get("Origin"))
	c.run()
}

// conn is one peer. The read loop owns player; the write loop owns every
// write to ws.
type conn struct {
	h       *Handler
	ws      *websocket.Conn
	id      string
	player  *lobby.Player
	updates chan lobby.Update
	replies chan outbound
	done    chan struct{} // closed when the read loop ends
	stopped chan struct{} // closed when the write loop ends
}

func (c *conn) run() {
	go func() {
		defer close(c.stopped)
		c.writeLoop()
		// Unblocks a read loop still waiting on a dead peer.
		c.ws.Close()
	}()

	c.reply("connected", map[string]any{
		"socketId":   c.id,
		"serverTime": time.Now().UTC().Format(time.RFC3339),
	})
	c.readLoop()

	if c.player != nil {
		c.h.lobby.Release(c.player.ID, c.updates)
	}
	close(c.done)
	<-c.stopped
	c.h.log.Info("peer disconnected", "conn", c.id)
}

func (c *conn) readLoop() {
	c.ws.SetReadLimit(maxMessage)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.h.log.Warn("read failed", "conn", c.id, "err", err)
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		var msg outbound
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case u := <-c.updates:
			msg = outbound{Type: string(u.Type), Data: u.Data}
		case msg = <-c.replies:
		}
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			c.h.log.Warn("write failed", "conn", c.id, "type", msg.Type, "err", err)
			return
		}
	}
}

// reply queues a direct response to this peer.
func (c *conn) reply(typ string, data any) {
	select {
	case c.replies <- outbound{Type: typ, Data: data}:
	case <-c.stopped:
	}
}

type errorData struct {
	Message string `json:"message"`
}

func (c *conn) fail(err error) {
	c.reply("error", errorData{Message: err.Error()})
}

type nameRequest struct {
	PlayerName string `json:"playerName"`
}

type roomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// moveRequest is the only move shape accepted. Any gameState a peer sends
// alongside is dropped during decoding.
type moveRequest struct {
	From *chess.Position `json:"from"`
	To   *chess.Position `json:"to"`
}

type rejoinResult struct {
	Success     bool               `json:"success"`
	RoomID      string             `json:"roomId,omitempty"`
	Players     []lobby.PlayerView `json:"players,omitempty"`
	GameStarted bool               `json:"gameStarted"`
	GameState   *chess.Game        `json:"gameState,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (c *conn) dispatch(env Envelope) {
	c.h.log.Debug("event", "conn", c.id, "type", env.Type)
	switch env.Type {
	case "createRoom":
		name, err := decodeName(env.Data)
		if err != nil {
			c.fail(err)
			return
		}
		c.leave()
		view, p := c.h.lobby.CreateRoom(name, c.updates)
		c.player = p
		c.reply("roomCreated", view)

	case "joinRoom":
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			c.reply("joinError", err.Error())
			return
		}
		if req.PlayerName == "" {
			c.reply("joinError", errNameRequired.Error())
			return
		}
		c.leave()
		view, p, err := c.h.lobby.JoinRoom(req.RoomID, req.PlayerName, c.updates)
		if err != nil {
			c.reply("joinError", err.Error())
			return
		}
		c.player = p
		if !view.IsGameStarted {
			c.reply("joinedRoom", view)
		}

	case "rejoinRoom":
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			c.reply("rejoinRoomResult", rejoinResult{Error: err.Error()})
			return
		}
		view, p, err := c.h.lobby.RejoinRoom(req.RoomID, req.PlayerName, c.updates)
		if err != nil {
			c.reply("rejoinRoomResult", rejoinResult{Error: err.Error()})
			return
		}
		if c.player != nil && c.player.ID != p.ID {
			c.leave()
		}
		c.player = p
		res := rejoinResult{Success: true, RoomID: view.RoomID, Players: view.Players, GameStarted: view.IsGameStarted}
		if view.IsGameStarted {
			res.GameState = &view.Game
		}
		c.reply("rejoinRoomResult", res)
		if view.IsGameStarted {
			c.reply(string(lobby.GameStarted), view)
		}

	case "checkRoomStatus":
		var req roomRequest
		if err := decode(env.Data, &req); err != nil {
			c.fail(err)
			return
		}
		c.reply("roomStatusResult", c.h.lobby.RoomStatus(req.RoomID))

	case "leaveGame":
		c.leave()

	case "makeMove":
		if c.player == nil {
			c.reply("moveError", lobby.ErrRoomNotFound.Error())
			return
		}
		var req moveRequest
		if err := decode(env.Data, &req); err != nil {
			c.reply("moveError", err.Error())
			return
		}
		if req.From == nil || req.To == nil {
			c.reply("moveError", "from and to are required")
			return
		}
		if _, err := c.h.lobby.MakeMove(c.player.ID, *req.From, *req.To); err != nil {
			c.reply("moveError", err.Error())
		}

	case "resetGame":
		if c.player == nil {
			c.fail(lobby.ErrRoomNotFound)
			return
		}
		if _, err := c.h.lobby.Reset(c.player.ID); err != nil {
			c.fail(err)
		}

	case "getRooms":
		c.reply("roomsList", c.h.lobby.OpenRooms())

	case "selectSquare":
		if c.player == nil {
			c.fail(lobby.ErrRoomNotFound)
			return
		}
		var pos chess.Position
		if err := decode(env.Data, &pos); err != nil {
			c.fail(err)
			return
		}
		g, err := c.h.lobby.Preview(c.player.ID, pos)
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("selection", g)

	default:
		c.fail(fmt.Errorf("unknown event type %q", env.Type))
	}
}

// leave gives up the current seat, if any.
func (c *conn) leave() {
	if c.player == nil {
		return
	}
	c.h.lobby.Leave(c.player.ID)
	c.player = nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}

// decodeName accepts either {"playerName": "..."} or a bare JSON string.
func decodeName(data json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil && name != "" {
		return name, nil
	}
	var req nameRequest
	if err := decode(data, &req); err != nil {
		return "", err
	}
	if req.PlayerName == "" {
		return "", errNameRequired
	}
	return req.PlayerName, nil
}
