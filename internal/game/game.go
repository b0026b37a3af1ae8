// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/card"
	"github.com/jason-s-yu/uno/internal/deck"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHandSize   = 7
	DefaultMaxPlayers = 10

	unoPenalty    = 2
	maxNameLength = 32
)

// ActionPublisher receives a record of every state change, typically the Redis journal.
type ActionPublisher interface {
	PublishAction(ctx context.Context, record cache.ActionRecord) error
}

// Placement is one player's result as reported when a session finishes. Place is 0 for bots that never finished.
type Placement struct {
	Name  string
	Kind  Kind
	Place int
}

// OnFinishFunc handles a finished session, e.g. recording results. It runs on its own goroutine.
type OnFinishFunc func(sessionID uuid.UUID, placements []Placement)

// Options configures a session. Zero values fall back to the defaults.
type Options struct {
	HandSize   int
	MaxPlayers int
	// Rand drives shuffles and bot color choices. It must not be shared between sessions.
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
	Journal  ActionPublisher
	OnFinish OnFinishFunc
}

func (o Options) withDefaults() Options {
	if o.HandSize <= 0 {
		o.HandSize = DefaultHandSize
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = DefaultMaxPlayers
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Game holds the entire state for a single session in memory.
// All mutations happen under mu; messages produced by a mutation are
// delivered after mu is released, in the order they were produced.
type Game struct {
	ID uuid.UUID

	mu     sync.Mutex
	sendMu sync.Mutex
	outbox []envelope

	author    string
	status    Status
	players   []*Player
	turn      int
	clockwise bool
	deck      *deck.Deck
	effect    ActiveEffect
	nextPlace int

	actionIndex int
	journalMu   sync.Mutex
	journalQ    []cache.ActionRecord
	publishing  bool

	handSize   int
	maxPlayers int
	rng        *rand.Rand
	log        logrus.FieldLogger
	journal    ActionPublisher
	onFinish   OnFinishFunc
}

// New creates a session in the lobby with author as its first player.
func New(author string, opts Options) (*Game, error) {
	if err := validateName(author); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	id := uuid.New()
	g := &Game{
		ID:         id,
		author:     author,
		status:     Lobby,
		players:    []*Player{{Name: author, Kind: Human}},
		clockwise:  true,
		nextPlace:  1,
		handSize:   opts.HandSize,
		maxPlayers: opts.MaxPlayers,
		rng:        opts.Rand,
		log:        opts.Logger.WithField("session", id),
		journal:    opts.Journal,
		onFinish:   opts.OnFinish,
	}
	g.deck = deck.New(g.rng)
	g.logAction(author, "session_create", nil)
	return g, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidName, maxNameLength)
	}
	return nil
}

// unlockAndFlush releases the session lock and delivers everything queued while it was held.
// sendMu is taken before mu is released so that consecutive operations deliver in order.
func (g *Game) unlockAndFlush() {
	out := g.outbox
	g.outbox = nil
	g.sendMu.Lock()
	g.mu.Unlock()
	defer g.sendMu.Unlock()

	for _, env := range out {
		env.to.Send(env.msg)
	}
}

// Author returns the name of the player who created the session.
func (g *Game) Author() string {
	return g.author
}

// Status returns the lifecycle state of the session.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// CurrentPlayer returns whose turn it is, or "" when the session is not running.
func (g *Game) CurrentPlayer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.current(); p != nil {
		return p.Name
	}
	return ""
}

// Join adds a human player while the session is in the lobby.
func (g *Game) Join(name string) error {
	return g.join(name, Human)
}

// AddBot adds an automated player while the session is in the lobby.
func (g *Game) AddBot(name string) error {
	return g.join(name, Bot)
}

func (g *Game) join(name string, kind Kind) error {
	if err := validateName(name); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.unlockAndFlush()

	if g.status != Lobby {
		return fmt.Errorf("%w: session is %s", ErrNotInLobby, g.status)
	}
	if g.player(name) != nil {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if len(g.players) >= g.maxPlayers {
		return fmt.Errorf("%w: %d players", ErrSessionFull, g.maxPlayers)
	}

	g.players = append(g.players, &Player{Name: name, Kind: kind})
	g.log.WithFields(logrus.Fields{"player": name, "kind": kind}).Info("player joined")
	g.logAction(name, "player_join", map[string]interface{}{"kind": kind.String()})
	g.broadcastStatus()
	return nil
}

// Start deals a fresh deck and begins the first turn with the author.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.unlockAndFlush()

	switch g.status {
	case Running:
		return ErrAlreadyStarted
	case Finished:
		return ErrSessionFinished
	}
	if g.player(g.author) == nil {
		return fmt.Errorf("%w: %s", ErrAuthorNotFound, g.author)
	}

	d := deck.New(g.rng)
	if need := len(g.players) * g.handSize; need > d.DrawPileLen() {
		return fmt.Errorf("%w: %d cards needed to deal, %d available", ErrDeckEmpty, need, d.DrawPileLen())
	}

	g.deck = d
	g.effect.Clear()
	g.turn = 0
	g.clockwise = true
	g.nextPlace = 1
	for _, p := range g.players {
		p.hand = make([]card.Card, 0, g.handSize)
		p.place = 0
		for i := 0; i < g.handSize; i++ {
			c, _ := g.deck.Draw()
			p.hand = append(p.hand, c)
		}
	}
	g.status = Running

	g.log.WithField("players", len(g.players)).Info("session started")
	g.logAction(g.author, "session_start", map[string]interface{}{"top": g.deck.TopDiscard()})
	g.broadcastStatus()
	g.runBots()
	return nil
}

// CanPlayCard reports whether c may be played right now, ignoring whose turn it is.
func (g *Game) CanPlayCard(c card.Card) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canPlayCard(c)
}

// canPlayCard applies the pending effect first: while a run is open only its symbol answers it.
func (g *Game) canPlayCard(c card.Card) bool {
	if sym, ok := g.effect.ActiveSymbol(); ok {
		return c.Symbol() == sym
	}
	return deck.CanPlayCard(c, g.deck.TopDiscard())
}

// PlayCard plays c from the named player's hand. newColor is required for Wild and Draw4.
// saidUno must be true exactly when the play leaves a single card in hand; forgetting it
// costs two penalty cards, claiming it wrongly rejects the play without changing anything.
// When the turn passes to bots they play before PlayCard returns.
func (g *Game) PlayCard(name string, c card.Card, newColor *card.Color, saidUno bool) (card.Card, error) {
	g.mu.Lock()
	defer g.unlockAndFlush()

	played, err := g.playCard(name, c, newColor, saidUno)
	if err != nil {
		return card.Card{}, err
	}
	g.runBots()
	return played, nil
}

// playCard assumes the lock is held and does not run the bot cascade.
func (g *Game) playCard(name string, c card.Card, newColor *card.Color, saidUno bool) (card.Card, error) {
	p, err := g.checkTurn(name)
	if err != nil {
		return card.Card{}, err
	}

	idx := p.indexOf(c)
	if idx < 0 {
		return card.Card{}, fmt.Errorf("%w: %s", ErrNoSuchCard, c)
	}
	if !g.canPlayCard(c) {
		return card.Card{}, fmt.Errorf("%w: %s on %s", ErrCardCannotBePlayed, c, g.deck.TopDiscard())
	}

	played := c
	if c.ShouldBeBlack() {
		if newColor == nil {
			return card.Card{}, fmt.Errorf("%w: no color chosen for %s", ErrCardCannotBePlayed, c)
		}
		if played, err = c.Morph(*newColor); err != nil {
			return card.Card{}, fmt.Errorf("%w: %v", ErrCardCannotBePlayed, err)
		}
	}

	// Checked before anything moves so a false claim leaves hand and discard untouched.
	remaining := len(p.hand) - 1
	if saidUno && remaining != 1 {
		return card.Card{}, fmt.Errorf("%w: %d cards would remain", ErrSaidUnoWhenShouldNotHave, remaining)
	}

	p.removeAt(idx)
	g.deck.Play(played)
	g.logAction(name, "play_card", map[string]interface{}{"card": played, "saidUno": saidUno})

	msg := &PlayCardMessage{Type: TypePlayCard, Who: name, Card: played}
	g.fireEvent(msg)

	if remaining == 1 && !saidUno {
		g.penalize(p, unoPenalty)
	}

	if isStackable(played.Symbol()) {
		if err := g.effect.Push(played); err != nil {
			// canPlayCard already matched the symbol of any open run.
			g.log.WithError(err).Error("active effect rejected a legal card")
			g.effect.Clear()
		}
	} else {
		g.effect.Clear()
	}

	if played.Symbol() == card.Reverse {
		g.clockwise = !g.clockwise
	}

	if len(p.hand) == 0 {
		g.finish(p)
		if g.status == Finished {
			return played, nil
		}
	}

	g.endTurn()
	msg.Next = g.currentName()
	return played, nil
}

// DrawCards answers an open effect by drawing its penalty (nothing for Skip), or draws one card
// when the player has nothing playable. The turn always passes afterwards.
func (g *Game) DrawCards(name string) ([]card.Card, error) {
	g.mu.Lock()
	defer g.unlockAndFlush()

	drawn, err := g.drawCards(name)
	if err != nil {
		return nil, err
	}
	g.runBots()
	return drawn, nil
}

// drawCards assumes the lock is held and does not run the bot cascade.
func (g *Game) drawCards(name string) ([]card.Card, error) {
	p, err := g.checkTurn(name)
	if err != nil {
		return nil, err
	}

	var drawn []card.Card
	if g.effect.AreActive() {
		n, _ := g.effect.SumDrawPenalty()
		drawn = g.drawInto(p, n)
		g.effect.Clear()
	} else {
		for _, c := range p.hand {
			if g.canPlayCard(c) {
				return nil, fmt.Errorf("%w: %s", ErrCanPlayInstead, c)
			}
		}
		drawn = g.drawInto(p, 1)
	}
	g.logAction(name, "draw_cards", map[string]interface{}{"count": len(drawn)})

	g.endTurn()
	g.fireEvent(&DrawMessage{Type: TypeDraw, Who: name, Next: g.currentName(), Cards: len(drawn)})
	return drawn, nil
}

// drawInto moves up to n cards from the deck into the player's hand.
func (g *Game) drawInto(p *Player, n int) []card.Card {
	drawn := make([]card.Card, 0, n)
	for i := 0; i < n; i++ {
		c, ok := g.deck.Draw()
		if !ok {
			g.log.WithFields(logrus.Fields{"player": p.Name, "wanted": n, "got": len(drawn)}).
				Warn("no cards left to draw")
			break
		}
		drawn = append(drawn, c)
	}
	p.hand = append(p.hand, drawn...)
	return drawn
}

// penalize draws n cards for p, showing them only to p.
func (g *Game) penalize(p *Player, n int) {
	drawn := g.drawInto(p, n)
	g.logAction(p.Name, "uno_penalty", map[string]interface{}{"count": len(drawn)})
	g.fireEventToPlayer(p, &PenaltyMessage{Type: TypePenalty, Who: p.Name, Cards: drawn})
	g.fireEventToOthers(p, &GainedCardsMessage{Type: TypeGainedCards, Who: p.Name, Number: len(drawn)})
}

// finish ranks p and ends the session once every human is ranked.
func (g *Game) finish(p *Player) {
	p.place = g.nextPlace
	g.nextPlace++
	g.log.WithFields(logrus.Fields{"player": p.Name, "place": p.place}).Info("player finished")
	g.logAction(p.Name, "player_finish", map[string]interface{}{"place": p.place})
	g.fireEvent(&FinishMessage{Type: TypeFinish, Who: p.Name})

	for _, pl := range g.players {
		if pl.Kind == Human && !pl.Finished() {
			return
		}
	}

	g.status = Finished
	g.log.Info("session finished")
	g.logAction("", "session_finish", nil)
	g.broadcastStatus()

	if g.onFinish != nil {
		go g.onFinish(g.ID, g.placements())
	}
}

func (g *Game) placements() []Placement {
	out := make([]Placement, 0, len(g.players))
	for _, p := range g.players {
		out = append(out, Placement{Name: p.Name, Kind: p.Kind, Place: p.place})
	}
	return out
}

// endTurn steps in the current direction to the next player who has not finished.
// It returns false, leaving the turn where it was, when everyone has finished.
func (g *Game) endTurn() bool {
	n := len(g.players)
	step := 1
	if !g.clockwise {
		step = -1
	}
	idx := g.turn
	for i := 0; i < n; i++ {
		idx = (idx + step + n) % n
		if !g.players[idx].Finished() {
			g.turn = idx
			return true
		}
	}
	return false
}

// checkTurn resolves the acting player and makes sure it is their turn.
func (g *Game) checkTurn(name string) (*Player, error) {
	cur := g.current()
	if cur == nil {
		return nil, ErrNoOneIsPlaying
	}
	p := g.player(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	if p != cur {
		return nil, fmt.Errorf("%w: it is %s's turn", ErrPlayerOutOfTurn, cur.Name)
	}
	return p, nil
}

// current returns the player whose turn it is, or nil when the session is not running.
func (g *Game) current() *Player {
	if g.status != Running || len(g.players) == 0 {
		return nil
	}
	return g.players[g.turn]
}

func (g *Game) currentName() string {
	if p := g.current(); p != nil {
		return p.Name
	}
	return ""
}

func (g *Game) player(name string) *Player {
	for _, p := range g.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// BindTransport attaches a connection to a human player and sends them a fresh snapshot.
// A previously bound transport is simply replaced.
func (g *Game) BindTransport(name string, t Transport) error {
	g.mu.Lock()
	defer g.unlockAndFlush()

	p := g.player(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	if p.Kind != Human {
		return fmt.Errorf("%w: %s", ErrNotHuman, name)
	}
	p.transport = t
	g.fireEventToPlayer(p, g.statusFor(p))
	return nil
}

// UnbindTransport detaches t if it is still the player's transport.
func (g *Game) UnbindTransport(name string, t Transport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.player(name); p != nil && p.transport == t {
		p.transport = nil
	}
}

// fireEvent queues msg for every reachable player.
func (g *Game) fireEvent(msg Message) {
	for _, p := range g.players {
		g.fireEventToPlayer(p, msg)
	}
}

// fireEventToPlayer queues msg for p. Players without a transport are skipped.
func (g *Game) fireEventToPlayer(p *Player, msg Message) {
	if p.transport == nil {
		return
	}
	g.outbox = append(g.outbox, envelope{to: p.transport, msg: msg})
}

func (g *Game) fireEventToOthers(except *Player, msg Message) {
	for _, p := range g.players {
		if p != except {
			g.fireEventToPlayer(p, msg)
		}
	}
}

// broadcastStatus queues a snapshot tailored to each player.
func (g *Game) broadcastStatus() {
	for _, p := range g.players {
		if p.transport != nil {
			g.fireEventToPlayer(p, g.statusFor(p))
		}
	}
}

// logAction queues the action for the journal. Records are published one at a time
// in index order by a single drain goroutine per session.
// Assumes lock is held by caller.
func (g *Game) logAction(actor, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.journal == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.ActionRecord{
		SessionID:     g.ID,
		ActionIndex:   g.actionIndex,
		Actor:         actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}

	g.journalMu.Lock()
	g.journalQ = append(g.journalQ, record)
	start := !g.publishing
	g.publishing = true
	g.journalMu.Unlock()
	if start {
		go g.drainJournal()
	}
}

// drainJournal publishes queued records until the queue is empty.
func (g *Game) drainJournal() {
	for {
		g.journalMu.Lock()
		if len(g.journalQ) == 0 {
			g.publishing = false
			g.journalMu.Unlock()
			return
		}
		rec := g.journalQ[0]
		g.journalQ = g.journalQ[1:]
		g.journalMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := g.journal.PublishAction(ctx, rec); err != nil {
			g.log.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
		cancel()
	}
}
