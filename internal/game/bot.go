// internal/game/bot.go
package game

import (
	"github.com/jason-s-yu/uno/internal/card"
	"github.com/sirupsen/logrus"
)

// runBots plays for automated players until a human is up or the session ends.
// It runs inside the lock of the call that handed the turn over, so nobody
// observes a state between a human move and the bot moves that follow it.
func (g *Game) runBots() {
	for g.status == Running {
		p := g.current()
		if p == nil || p.Kind != Bot {
			return
		}
		if err := g.botTurn(p); err != nil {
			g.log.WithError(err).WithField("player", p.Name).Error("bot could not take its turn")
			return
		}
	}
}

// botTurn answers an open effect with the same symbol, otherwise plays the first legal card,
// otherwise draws. Bots always declare UNO truthfully.
func (g *Game) botTurn(p *Player) error {
	c, ok := g.chooseCard(p)
	if !ok {
		_, err := g.drawCards(p.Name)
		return err
	}

	var color *card.Color
	if c.ShouldBeBlack() {
		picked := g.pickColor()
		color = &picked
	}
	saidUno := len(p.hand) == 2

	g.log.WithFields(logrus.Fields{"player": p.Name, "card": c.String()}).Debug("bot plays")
	_, err := g.playCard(p.Name, c, color, saidUno)
	return err
}

// chooseCard returns the first card in hand that can be played now.
// canPlayCard already restricts the choice to the open effect's symbol.
func (g *Game) chooseCard(p *Player) (card.Card, bool) {
	for _, c := range p.hand {
		if g.canPlayCard(c) {
			return c, true
		}
	}
	return card.Card{}, false
}

func (g *Game) pickColor() card.Color {
	return card.PlayableColors[g.rng.Intn(len(card.PlayableColors))]
}
