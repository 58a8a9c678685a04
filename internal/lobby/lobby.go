// Package lobby owns rooms and players and is the only place a networked
// game advances. Peers submit (from, to) requests; the room's chess.Game
// validates them and every resulting state is broadcast from here.
package lobby

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/imjasonh/fusionchess/internal/chess"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrPlayerNotFound = errors.New("player not found in this room")
	ErrGameNotStarted = errors.New("game not started")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNameTaken      = errors.New("name already taken in this room")
)

// Room is a two-seat table around one authoritative game.
type Room struct {
	ID string

	mu      sync.Mutex
	players []*Player
	started bool
	game    chess.Game
}

func newRoom(id string) *Room {
	return &Room{ID: id, game: chess.NewGame()}
}

func (r *Room) playerLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) opponentLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

// freeColorLocked returns the color no seated player holds.
func (r *Room) freeColorLocked() chess.Color {
	for _, p := range r.players {
		if p.Color() == chess.White {
			return chess.Black
		}
	}
	return chess.White
}

func (r *Room) connectedLocked() int {
	n := 0
	for _, p := range r.players {
		if p.Connected() {
			n++
		}
	}
	return n
}

func (r *Room) viewLocked() RoomView {
	v := RoomView{
		RoomID:             r.ID,
		Players:            make([]PlayerView, 0, len(r.players)),
		IsGameStarted:      r.started,
		Game:               r.game,
		WaitingForOpponent: len(r.players) == 1,
	}
	for _, p := range r.players {
		v.Players = append(v.Players, p.view())
	}
	return v
}

func (r *Room) broadcastLocked(u Update) {
	for _, p := range r.players {
		p.send(u)
	}
}

// Manager tracks rooms, seat assignments and the quick-match queue. Lock
// order is Manager.mu before Room.mu.
type Manager struct {
	log *log.Logger

	mu         sync.RWMutex
	rooms      map[string]*Room
	playerRoom map[string]string // player ID -> room ID
	queue      []*Player
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		log:        logger.WithPrefix("lobby"),
		rooms:      make(map[string]*Room),
		playerRoom: make(map[string]string),
	}
}

// newRoomIDLocked returns an unused six character upper-case room id.
func (m *Manager) newRoomIDLocked() string {
	for {
		id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		if _, taken := m.rooms[id]; !taken {
			return id
		}
	}
}

func (m *Manager) roomOf(playerID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[m.playerRoom[playerID]]
	return r, ok
}

// CreateRoom opens a room with name seated as white and waiting for an
// opponent. Updates for the new player are delivered on out.
func (m *Manager) CreateRoom(name string, out chan<- Update) (RoomView, *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := newRoom(m.newRoomIDLocked())
	p := newPlayer(name, chess.White, out)
	r.players = append(r.players, p)
	m.rooms[r.ID] = r
	m.playerRoom[p.ID] = r.ID

	m.log.Info("room created", "room", r.ID, "player", name)
	return r.viewLocked(), p
}

// JoinRoom seats name in the free color of roomID. Names are unique within
// a room so RejoinRoom can find the seat again. When the room becomes full
// the game starts and both players receive GameStarted.
func (m *Manager) JoinRoom(roomID, name string, out chan<- Update) (RoomView, *Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[strings.ToUpper(roomID)]
	if !ok {
		return RoomView{}, nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) >= 2 {
		return RoomView{}, nil, ErrRoomFull
	}
	if slices.ContainsFunc(r.players, func(p *Player) bool { return p.Name == name }) {
		return RoomView{}, nil, ErrNameTaken
	}

	p := newPlayer(name, r.freeColorLocked(), out)
	r.players = append(r.players, p)
	m.playerRoom[p.ID] = r.ID
	m.log.Info("player joined", "room", r.ID, "player", name, "color", p.Color())

	if len(r.players) == 2 {
		r.started = true
		r.game = chess.NewGame()
		view := r.viewLocked()
		r.broadcastLocked(Update{Type: GameStarted, Data: view, FromPlayer: p.ID})
		m.log.Info("game started", "room", r.ID)
		return view, p, nil
	}
	return r.viewLocked(), p, nil
}

// RejoinRoom binds out to the player seated in roomID under name, keeping
// their color and the game in progress. A disconnected seat is preferred
// when queue pairing left two players with the same name. The opponent receives
// PlayerReconnected when the game has started.
func (m *Manager) RejoinRoom(roomID, name string, out chan<- Update) (RoomView, *Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[strings.ToUpper(roomID)]
	if !ok {
		return RoomView{}, nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.players, func(p *Player) bool { return p.Name == name && !p.Connected() })
	if i < 0 {
		i = slices.IndexFunc(r.players, func(p *Player) bool { return p.Name == name })
	}
	if i < 0 {
		return RoomView{}, nil, ErrPlayerNotFound
	}
	p := r.players[i]
	p.attach(out)
	m.log.Info("player rejoined", "room", r.ID, "player", name, "color", p.Color())

	if r.started {
		if opp := r.opponentLocked(p.ID); opp != nil {
			opp.send(Update{
				Type:       PlayerReconnected,
				Data:       PlayerEvent{Name: p.Name, Color: p.Color()},
				FromPlayer: p.ID,
			})
		}
	}
	return r.viewLocked(), p, nil
}

// Leave removes playerID from its room or the queue. A remaining opponent
// wins by forfeit and is left waiting in the room with a fresh game.
func (m *Manager) Leave(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dequeueLocked(playerID)
	roomID, ok := m.playerRoom[playerID]
	if !ok {
		return
	}
	delete(m.playerRoom, playerID)
	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	leaving := r.playerLocked(playerID)
	if leaving == nil {
		return
	}
	leaving.detach()
	r.players = slices.DeleteFunc(r.players, func(p *Player) bool { return p.ID == playerID })

	if opp := r.opponentLocked(playerID); opp != nil {
		winner := opp.Color()
		final := r.game.State()
		final.IsGameOver = true
		final.Winner = &winner
		opp.send(Update{
			Type: OpponentLeft,
			Data: LeaveUpdate{
				OpponentName:  leaving.Name,
				OpponentColor: leaving.Color(),
				WinnerColor:   winner,
				GameState:     final,
			},
			FromPlayer: playerID,
		})
		m.log.Info("player left, opponent wins by forfeit", "room", r.ID, "player", leaving.Name, "winner", winner)
		r.started = false
		r.game = chess.NewGame()
	}

	if len(r.players) == 0 {
		delete(m.rooms, r.ID)
		m.log.Info("empty room deleted", "room", r.ID)
	}
}

// Disconnect marks playerID as gone without giving up the seat, so the
// player can RejoinRoom later. The room is removed once nobody in it is
// connected.
func (m *Manager) Disconnect(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked(playerID, nil)
}

// Release is Disconnect for a connection that may have been superseded: it
// only takes effect while out is still the channel bound to playerID.
func (m *Manager) Release(playerID string, out chan<- Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked(playerID, out)
}

func (m *Manager) disconnectLocked(playerID string, out chan<- Update) {
	if i := slices.IndexFunc(m.queue, func(p *Player) bool { return p.ID == playerID }); i >= 0 {
		if out == nil || m.queue[i].boundTo(out) {
			m.dequeueLocked(playerID)
		}
		return
	}
	r, ok := m.rooms[m.playerRoom[playerID]]
	if !ok {
		delete(m.playerRoom, playerID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil || (out != nil && !p.boundTo(out)) {
		return
	}
	p.detach()
	m.log.Info("player disconnected", "room", r.ID, "player", p.Name)

	if r.connectedLocked() == 0 {
		for _, p := range r.players {
			delete(m.playerRoom, p.ID)
		}
		delete(m.rooms, r.ID)
		m.log.Info("room deleted", "room", r.ID)
		return
	}
	r.broadcastLocked(Update{
		Type:       PlayerDisconnected,
		Data:       PlayerEvent{Name: p.Name, Color: p.Color()},
		FromPlayer: playerID,
	})
}

// MakeMove applies from-to for playerID on the room's authoritative game
// and broadcasts the resulting state to both players.
func (m *Manager) MakeMove(playerID string, from, to chess.Position) (chess.Game, error) {
	r, ok := m.roomOf(playerID)
	if !ok {
		return chess.Game{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return chess.Game{}, ErrGameNotStarted
	}
	p := r.playerLocked(playerID)
	if p == nil {
		return chess.Game{}, ErrPlayerNotFound
	}
	color := p.Color()
	if turn := r.game.Turn(); color != turn {
		return chess.Game{}, fmt.Errorf("%w: current turn %s, you are %s", ErrNotYourTurn, turn, color)
	}

	next, err := r.game.Apply(from, to)
	if err != nil {
		m.log.Debug("move rejected", "room", r.ID, "player", p.Name, "from", from, "to", to, "err", err)
		return chess.Game{}, err
	}
	r.game = next
	m.log.Info("move", "room", r.ID, "player", p.Name, "from", from, "to", to, "status", next.Status())

	r.broadcastLocked(Update{
		Type: GameStateUpdate,
		Data: MoveUpdate{
			Game:     next,
			LastMove: LastMove{From: from, To: to, Player: p.Name, Color: color},
		},
		FromPlayer: playerID,
	})
	return next, nil
}

// Reset restarts the game in a started room and broadcasts GameReset.
func (m *Manager) Reset(playerID string) (chess.Game, error) {
	r, ok := m.roomOf(playerID)
	if !ok {
		return chess.Game{}, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return chess.Game{}, ErrGameNotStarted
	}
	r.game = r.game.Reset()
	r.broadcastLocked(Update{Type: GameReset, Data: ResetUpdate{Game: r.game}, FromPlayer: playerID})
	m.log.Info("game reset", "room", r.ID)
	return r.game, nil
}

// Preview runs a selection at pos against a copy of the room's game for the
// player whose turn it is. The room itself is never modified.
func (m *Manager) Preview(playerID string, pos chess.Position) (chess.Game, error) {
	r, ok := m.roomOf(playerID)
	if !ok {
		return chess.Game{}, ErrRoomNotFound
	}
	r.mu.Lock()
	p := r.playerLocked(playerID)
	g := r.game
	r.mu.Unlock()

	if p == nil {
		return chess.Game{}, ErrPlayerNotFound
	}
	if color, turn := p.Color(), g.Turn(); color != turn {
		return chess.Game{}, fmt.Errorf("%w: current turn %s, you are %s", ErrNotYourTurn, turn, color)
	}
	next, _, err := g.Select(pos)
	return next, err
}

// Room returns the current view of playerID's room.
func (m *Manager) Room(playerID string) (RoomView, bool) {
	r, ok := m.roomOf(playerID)
	if !ok {
		return RoomView{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked(), true
}

// OpenRoom summarizes a room waiting for a second player.
type OpenRoom struct {
	ID          string `json:"id"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
}

func (m *Manager) OpenRooms() []OpenRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := []OpenRoom{}
	for _, r := range m.rooms {
		r.mu.Lock()
		if !r.started && len(r.players) == 1 {
			open = append(open, OpenRoom{ID: r.ID, HostName: r.players[0].Name, PlayerCount: 1})
		}
		r.mu.Unlock()
	}
	slices.SortFunc(open, func(a, b OpenRoom) int { return cmp.Compare(a.ID, b.ID) })
	return open
}

type RoomStatus struct {
	Exists      bool `json:"exists"`
	GameStarted bool `json:"gameStarted"`
}

func (m *Manager) RoomStatus(roomID string) RoomStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[strings.ToUpper(roomID)]
	if !ok {
		return RoomStatus{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomStatus{Exists: true, GameStarted: r.started}
}

type RoomInfo struct {
	ID        string `json:"id"`
	Players   int    `json:"players"`
	IsStarted bool   `json:"isStarted"`
}

type Stats struct {
	ActiveRooms int        `json:"activeRooms"`
	Rooms       []RoomInfo `json:"rooms"`
	Queued      int        `json:"queued"`
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{ActiveRooms: len(m.rooms), Rooms: make([]RoomInfo, 0, len(m.rooms)), Queued: len(m.queue)}
	for _, r := range m.rooms {
		r.mu.Lock()
		s.Rooms = append(s.Rooms, RoomInfo{ID: r.ID, Players: len(r.players), IsStarted: r.started})
		r.mu.Unlock()
	}
	slices.SortFunc(s.Rooms, func(a, b RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return s
}

// Enqueue adds name to the quick-match queue. As soon as two players are
// waiting they are seated in a fresh room, white first, and both receive
// GameStarted.
func (m *Manager) Enqueue(name string, out chan<- Update) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := newPlayer(name, chess.White, out)
	m.queue = append(m.queue, p)
	m.log.Debug("player queued", "player", name, "position", len(m.queue))

	if len(m.queue) < 2 {
		return p
	}
	white, black := m.queue[0], m.queue[1]
	m.queue = slices.Delete(m.queue, 0, 2)
	white.setColor(chess.White)
	black.setColor(chess.Black)

	r := newRoom(m.newRoomIDLocked())
	r.players = []*Player{white, black}
	r.started = true
	m.rooms[r.ID] = r
	m.playerRoom[white.ID] = r.ID
	m.playerRoom[black.ID] = r.ID

	r.mu.Lock()
	r.broadcastLocked(Update{Type: GameStarted, Data: r.viewLocked()})
	r.mu.Unlock()
	m.log.Info("players matched", "room", r.ID, "white", white.Name, "black", black.Name)
	return p
}

// QueuePosition returns playerID's 1-based place in the queue, or -1.
func (m *Manager) QueuePosition(playerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, p := range m.queue {
		if p.ID == playerID {
			return i + 1
		}
	}
	return -1
}

func (m *Manager) dequeueLocked(playerID string) {
	m.queue = slices.DeleteFunc(m.queue, func(p *Player) bool {
		if p.ID == playerID {
			p.detach()
			return true
		}
		return false
	})
}
