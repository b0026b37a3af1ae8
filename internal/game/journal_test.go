// internal/game/journal_test.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/card"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingJournal keeps every published record. A non-zero delay slows each publish
// so that concurrent publishers would interleave.
type recordingJournal struct {
	mu      sync.Mutex
	records []cache.ActionRecord
	delay   time.Duration
}

func (j *recordingJournal) PublishAction(_ context.Context, rec cache.ActionRecord) error {
	if j.delay > 0 {
		time.Sleep(j.delay)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *recordingJournal) snapshot() []cache.ActionRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]cache.ActionRecord(nil), j.records...)
}

func TestJournalRecordsSession(t *testing.T) {
	journal := &recordingJournal{}
	logger, _ := logtest.NewNullLogger()
	g, err := New("Andy", Options{Rand: rand.New(rand.NewSource(3)), Logger: logger, Journal: journal})
	require.NoError(t, err)
	require.NoError(t, g.Join("Bob"))

	startRigged(t, g, c(card.Red, 5), map[string][]card.Card{
		"Andy": {c(card.Red, 1)},
		"Bob":  {c(card.Red, 2)},
	}, nil)
	_, err = g.PlayCard("Andy", c(card.Red, 1), nil, false)
	require.NoError(t, err)
	_, err = g.PlayCard("Bob", c(card.Red, 2), nil, false)
	require.NoError(t, err)
	require.Equal(t, Finished, g.Status())

	type step struct {
		actor, action string
	}
	want := []step{
		{"Andy", "session_create"},
		{"Bob", "player_join"},
		{"Andy", "session_start"},
		{"Andy", "play_card"},
		{"Andy", "player_finish"},
		{"Bob", "play_card"},
		{"Bob", "player_finish"},
		{"", "session_finish"},
	}
	require.Eventually(t, func() bool { return len(journal.snapshot()) == len(want) }, time.Second, 5*time.Millisecond)

	var got []step
	for i, rec := range journal.snapshot() {
		assert.Equal(t, g.ID, rec.SessionID)
		assert.Equal(t, i+1, rec.ActionIndex)
		got = append(got, step{rec.Actor, rec.ActionType})
	}
	assert.Equal(t, want, got)
}

// TestJournalKeepsOrderUnderLoad runs bot-heavy sessions against a slow journal and
// checks every session's records arrive with consecutive indexes ending in session_finish.
func TestJournalKeepsOrderUnderLoad(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	for seed := int64(1); seed <= 10; seed++ {
		journal := &recordingJournal{delay: time.Millisecond}
		g, err := New("Andy", Options{Rand: rand.New(rand.NewSource(seed)), Logger: logger, Journal: journal})
		require.NoError(t, err)
		for _, b := range []string{"W", "X", "Y", "Z"} {
			require.NoError(t, g.AddBot(b))
		}
		require.NoError(t, g.Start())

		for i := 0; i < 500 && g.Status() == Running; i++ {
			hand := handOf(g, "Andy")
			played := false
			for _, hc := range hand {
				if g.CanPlayCard(hc) {
					_, err := g.PlayCard("Andy", hc, colorPtr(card.Blue), len(hand) == 2)
					require.NoError(t, err)
					played = true
					break
				}
			}
			if !played {
				_, err := g.DrawCards("Andy")
				require.NoError(t, err)
			}
		}

		g.mu.Lock()
		total := g.actionIndex
		g.mu.Unlock()
		require.Eventually(t, func() bool { return len(journal.snapshot()) == total }, 5*time.Second, 5*time.Millisecond)

		recs := journal.snapshot()
		for i, rec := range recs {
			require.Equal(t, i+1, rec.ActionIndex, "seed %d", seed)
		}
		if g.Status() == Finished {
			assert.Equal(t, "session_finish", recs[len(recs)-1].ActionType, "seed %d", seed)
		}
	}
}
