package lobby

import (
	"sync"

	"github.com/google/uuid"
	"github.com/imjasonh/fusionchess/internal/chess"
)

// UpdateBuffer is the capacity callers should give a player's update channel.
const UpdateBuffer = 16

// Player is a seat at a room, bound to at most one connection at a time.
type Player struct {
	ID   string
	Name string

	mu        sync.Mutex
	color     chess.Color
	connected bool
	out       chan<- Update // nil while detached
}

func newPlayer(name string, color chess.Color, out chan<- Update) *Player {
	return &Player{
		ID:        uuid.NewString(),
		Name:      name,
		color:     color,
		connected: out != nil,
		out:       out,
	}
}

func (p *Player) Color() chess.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.color
}

func (p *Player) setColor(c chess.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = c
}

// Connected reports whether the player currently has a connection bound.
func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Player) attach(out chan<- Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
	p.connected = true
}

func (p *Player) detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = nil
	p.connected = false
}

func (p *Player) boundTo(out chan<- Update) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out == out
}

// send delivers u without blocking. Updates to a full or detached channel
// are dropped.
func (p *Player) send(u Update) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.out == nil {
		return false
	}
	select {
	case p.out <- u:
		return true
	default:
		return false
	}
}

func (p *Player) view() PlayerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PlayerView{ID: p.ID, Name: p.Name, Color: p.color, Connected: p.connected}
}

// PlayerView is the public description of a seat.
type PlayerView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Color     chess.Color `json:"color"`
	Connected bool        `json:"connected"`
}
