// internal/game/sync_state.go
package game

import (
	"fmt"
	"sort"
)

// Snapshot returns the STATUS message the named player would receive right now.
func (g *Game) Snapshot(viewer string) (Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(viewer)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, viewer)
	}
	return g.statusFor(p), nil
}

// SendStatus delivers the named player's snapshot to t, ordered after every event
// of operations that completed before it.
func (g *Game) SendStatus(viewer string, t Transport) error {
	g.mu.Lock()
	defer g.unlockAndFlush()

	p := g.player(viewer)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, viewer)
	}
	g.outbox = append(g.outbox, envelope{to: t, msg: g.statusFor(p)})
	return nil
}

// Deliver sends msg to t through the session's delivery order.
func (g *Game) Deliver(t Transport, msg Message) {
	g.mu.Lock()
	g.outbox = append(g.outbox, envelope{to: t, msg: msg})
	g.unlockAndFlush()
}

// statusFor builds the snapshot for one viewer. Only the viewer's own cards are revealed.
// Assumes lock is held by caller.
func (g *Game) statusFor(viewer *Player) Message {
	switch g.status {
	case Lobby:
		names := make([]string, 0, len(g.players))
		for _, p := range g.players {
			names = append(names, p.Name)
		}
		return &LobbyStatus{
			Type:    TypeStatus,
			Status:  Lobby,
			Author:  g.author,
			You:     viewer.Name,
			Players: names,
		}

	case Finished:
		return &FinishedStatus{
			Type:            TypeStatus,
			Status:          Finished,
			Author:          g.author,
			You:             viewer.Name,
			FinishedPlayers: g.finishedPlayers(),
		}
	}

	players := make([]PlayerCards, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, PlayerCards{Name: p.Name, Cards: len(p.hand)})
	}
	st := &RunningStatus{
		Type:            TypeStatus,
		Status:          Running,
		Author:          g.author,
		You:             viewer.Name,
		CurrentPlayer:   g.currentName(),
		Players:         players,
		FinishedPlayers: g.finishedPlayers(),
		Cards:           viewer.Hand(),
		TopCard:         g.deck.TopDiscard(),
		Clockwise:       g.clockwise,
	}
	if sym, ok := g.effect.ActiveSymbol(); ok {
		st.ActiveSymbol = &sym
	}
	return st
}

// finishedPlayers lists finished players by rank.
func (g *Game) finishedPlayers() []string {
	var done []*Player
	for _, p := range g.players {
		if p.Finished() {
			done = append(done, p)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].place < done[j].place })

	names := make([]string, 0, len(done))
	for _, p := range done {
		names = append(names, p.Name)
	}
	return names
}
