// internal/game/game_store.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store maps session ids to sessions. Each session has its own lock, so the store
// lock is only held for map access.
type Store struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Game
	opts  Options
	seeds *rand.Rand
}

// NewStore returns an empty store. opts is applied to every session it creates;
// opts.Rand, if set, only seeds the per-session sources.
func NewStore(opts Options) *Store {
	seeds := opts.Rand
	if seeds == nil {
		seeds = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	opts.Rand = nil
	return &Store{
		games: make(map[uuid.UUID]*Game),
		opts:  opts,
		seeds: seeds,
	}
}

// Create starts a new session in the lobby with author as its first player.
func (s *Store) Create(author string) (*Game, error) {
	s.mu.Lock()
	opts := s.opts
	opts.Rand = rand.New(rand.NewSource(s.seeds.Int63()))
	s.mu.Unlock()

	g, err := New(author, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
	return g, nil
}

// Get returns the session with the given id.
func (s *Store) Get(id uuid.UUID) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return g, nil
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// Prune removes finished sessions and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.Unlock()

	removed := 0
	for _, g := range games {
		if g.Status() == Finished {
			s.Delete(g.ID)
			removed++
		}
	}
	return removed
}
