// internal/game/active_effect.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/uno/internal/card"
)

// isStackable reports whether a played card opens or extends a response window.
func isStackable(s card.Symbol) bool {
	return s == card.Skip || s == card.Draw2 || s == card.Draw4
}

// ActiveEffect tracks a run of same-symbol Skip, Draw2 or Draw4 cards that the
// next player has to answer, either by playing the same symbol or by drawing.
type ActiveEffect struct {
	cards []card.Card
}

// Push extends the run. It fails when the symbol is not stackable or differs from the run.
func (e *ActiveEffect) Push(c card.Card) error {
	if !isStackable(c.Symbol()) {
		return fmt.Errorf("%s cannot be stacked", c.Symbol())
	}
	if sym, ok := e.ActiveSymbol(); ok && sym != c.Symbol() {
		return fmt.Errorf("cannot stack %s on %s", c.Symbol(), sym)
	}
	e.cards = append(e.cards, c)
	return nil
}

// ActiveSymbol returns the symbol of the current run, if any.
func (e *ActiveEffect) ActiveSymbol() (card.Symbol, bool) {
	if len(e.cards) == 0 {
		return 0, false
	}
	return e.cards[0].Symbol(), true
}

func (e *ActiveEffect) AreActive() bool {
	return len(e.cards) > 0
}

func (e *ActiveEffect) Len() int {
	return len(e.cards)
}

// SumDrawPenalty returns how many cards the answering player draws. Skip runs carry no penalty.
func (e *ActiveEffect) SumDrawPenalty() (int, bool) {
	sym, ok := e.ActiveSymbol()
	if !ok {
		return 0, false
	}
	switch sym {
	case card.Draw2:
		return 2 * len(e.cards), true
	case card.Draw4:
		return 4 * len(e.cards), true
	default:
		return 0, false
	}
}

func (e *ActiveEffect) Clear() {
	e.cards = nil
}
