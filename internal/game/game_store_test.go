// internal/game/game_store_test.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/card"
	"github.com/jason-s-yu/uno/internal/deck"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	logger, _ := logtest.NewNullLogger()
	return NewStore(Options{Rand: rand.New(rand.NewSource(11)), Logger: logger})
}

func TestStoreCreateGet(t *testing.T) {
	s := newTestStore()

	g, err := s.Create("Andy")
	require.NoError(t, err)
	assert.Equal(t, "Andy", g.Author())
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(g.ID)
	require.NoError(t, err)
	assert.Same(t, g, got)

	_, err = s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.Create("")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, 1, s.Len())

	s.Delete(g.ID)
	_, err = s.Get(g.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStorePrune(t *testing.T) {
	s := newTestStore()

	done, err := s.Create("Andy")
	require.NoError(t, err)
	open, err := s.Create("Bob")
	require.NoError(t, err)

	done.mu.Lock()
	done.status = Finished
	done.mu.Unlock()

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(open.ID)
	assert.NoError(t, err)
}

// TestStoreConcurrentSessions runs independent sessions in parallel; meant for -race.
func TestStoreConcurrentSessions(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		g, err := s.Create(fmt.Sprintf("human-%d", i))
		require.NoError(t, err)
		require.NoError(t, g.AddBot("bot"))
		require.NoError(t, g.Start())

		wg.Add(1)
		go func(g *Game, name string) {
			defer wg.Done()
			for j := 0; j < 50 && g.Status() == Running; j++ {
				if _, err := g.DrawCards(name); err == nil {
					continue
				}
				hand := handOf(g, name)
				for _, hc := range hand {
					if g.CanPlayCard(hc) {
						_, _ = g.PlayCard(name, hc, colorPtr(card.Green), len(hand) == 2)
						break
					}
				}
			}
		}(g, fmt.Sprintf("human-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
	s.mu.Lock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.Unlock()
	for _, g := range games {
		assert.Equal(t, deck.Size, totalCards(g))
	}
}
