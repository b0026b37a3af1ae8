// internal/game/player.go
package game

import (
	"github.com/jason-s-yu/uno/internal/card"
)

// Kind tells a human participant apart from an automated one.
type Kind int

const (
	Human Kind = iota
	Bot
)

func (k Kind) String() string {
	if k == Bot {
		return "bot"
	}
	return "human"
}

// Transport delivers protocol messages to one connected human.
// Send must not block; a transport that cannot keep up drops messages.
type Transport interface {
	Send(msg Message)
}

// Player is a participant in a session. Only humans carry a transport,
// and a nil transport just means the player is not reachable right now.
type Player struct {
	Name string
	Kind Kind

	hand      []card.Card
	place     int // finishing rank, 0 while still playing
	transport Transport
}

// Hand returns a copy of the player's cards.
func (p *Player) Hand() []card.Card {
	return append([]card.Card(nil), p.hand...)
}

func (p *Player) HandSize() int { return len(p.hand) }

// Place returns the finishing rank starting at 1, or 0 if the player has not finished.
func (p *Player) Place() int { return p.place }

func (p *Player) Finished() bool { return p.place > 0 }

func (p *Player) indexOf(c card.Card) int {
	for i, hc := range p.hand {
		if hc == c {
			return i
		}
	}
	return -1
}

func (p *Player) removeAt(i int) card.Card {
	c := p.hand[i]
	p.hand = append(p.hand[:i], p.hand[i+1:]...)
	return c
}
