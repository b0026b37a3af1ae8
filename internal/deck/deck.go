// internal/deck/deck.go
package deck

import (
	"math/rand"

	"github.com/jason-s-yu/uno/internal/card"
)

// Size is the number of cards in a standard deck.
const Size = 108

// Deck holds the draw pile and the discard pile. The last element of each slice is its top.
// A Deck is not safe for concurrent use; the owning session serializes access.
type Deck struct {
	drawPile    []card.Card
	discardPile []card.Card
	rng         *rand.Rand
}

// Standard returns the 108 cards of a standard deck in a fixed order.
func Standard() []card.Card {
	cards := make([]card.Card, 0, Size)
	for _, c := range card.PlayableColors {
		cards = append(cards, colorCards(c)...)
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, card.MustNew(card.Black, card.Wild), card.MustNew(card.Black, card.Draw4))
	}
	return cards
}

// colorCards builds one zero, two of each number 1-9 and two of each action card.
func colorCards(c card.Color) []card.Card {
	cards := []card.Card{card.MustNew(c, 0)}
	for n := card.Symbol(1); n <= 9; n++ {
		cards = append(cards, card.MustNew(c, n), card.MustNew(c, n))
	}
	for _, s := range []card.Symbol{card.Skip, card.Reverse, card.Draw2} {
		cards = append(cards, card.MustNew(c, s), card.MustNew(c, s))
	}
	return cards
}

// New shuffles a standard deck with rng and flips the first non-black card onto the discard pile.
func New(rng *rand.Rand) *Deck {
	cards := Standard()
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	d := &Deck{rng: rng}
	for i := len(cards) - 1; i >= 0; i-- {
		if !cards[i].ShouldBeBlack() {
			d.discardPile = []card.Card{cards[i]}
			d.drawPile = append(cards[:i:i], cards[i+1:]...)
			break
		}
	}
	return d
}

// FromPiles builds a deck from explicit piles, top last. Used to replay or set up known states.
func FromPiles(drawPile, discardPile []card.Card, rng *rand.Rand) *Deck {
	return &Deck{
		drawPile:    append([]card.Card(nil), drawPile...),
		discardPile: append([]card.Card(nil), discardPile...),
		rng:         rng,
	}
}

// Draw pops the top of the draw pile, switching piles first when it is empty.
// It returns false only when there is nothing left to draw.
func (d *Deck) Draw() (card.Card, bool) {
	if len(d.drawPile) == 0 {
		d.switchPiles()
	}
	if len(d.drawPile) == 0 {
		return card.Card{}, false
	}
	top := d.drawPile[len(d.drawPile)-1]
	d.drawPile = d.drawPile[:len(d.drawPile)-1]
	return top, true
}

// switchPiles keeps the top discard aside, blackens the rest of the wild cards,
// and shuffles them into a new draw pile.
func (d *Deck) switchPiles() {
	if len(d.discardPile) <= 1 {
		return
	}
	top := d.discardPile[len(d.discardPile)-1]
	rest := d.discardPile[:len(d.discardPile)-1]

	pile := make([]card.Card, 0, len(rest)+len(d.drawPile))
	pile = append(pile, d.drawPile...)
	for _, c := range rest {
		pile = append(pile, c.Unmorph())
	}
	d.rng.Shuffle(len(pile), func(i, j int) {
		pile[i], pile[j] = pile[j], pile[i]
	})

	d.drawPile = pile
	d.discardPile = []card.Card{top}
}

// Play puts c on the discard pile. Legality is checked by the caller.
func (d *Deck) Play(c card.Card) {
	d.discardPile = append(d.discardPile, c)
}

// TopDiscard returns the last played card.
func (d *Deck) TopDiscard() card.Card {
	return d.discardPile[len(d.discardPile)-1]
}

func (d *Deck) DrawPileLen() int    { return len(d.drawPile) }
func (d *Deck) DiscardPileLen() int { return len(d.discardPile) }

// Cards returns copies of both piles.
func (d *Deck) Cards() (drawPile, discardPile []card.Card) {
	return append([]card.Card(nil), d.drawPile...), append([]card.Card(nil), d.discardPile...)
}

// CanPlayCard is the rule without any pending effect: black cards always go,
// otherwise color or symbol must match the top card.
func CanPlayCard(c, top card.Card) bool {
	return c.Color() == card.Black || c.Color() == top.Color() || c.Symbol() == top.Symbol()
}
