// internal/card/card.go
package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCard is returned when a color/symbol pair breaks the construction rules.
	ErrInvalidCard = errors.New("invalid card")
	// ErrCannotMorph is returned when Morph is called on a card that is not Wild or Draw4,
	// or with Black as the target color.
	ErrCannotMorph = errors.New("card cannot change color")
)

// Color is the color of a card. Black is reserved for Wild and Draw4.
type Color uint8

const (
	Red Color = iota
	Yellow
	Green
	Blue
	Black
)

// PlayableColors are the colors a Black card can be morphed into.
var PlayableColors = []Color{Red, Yellow, Green, Blue}

var colorNames = map[Color]string{
	Red:    "RED",
	Yellow: "YELLOW",
	Green:  "GREEN",
	Blue:   "BLUE",
	Black:  "BLACK",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// ParseColor parses the wire name of a color, case-insensitively.
func ParseColor(s string) (Color, error) {
	for c, name := range colorNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalJSON() ([]byte, error) {
	name, ok := colorNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown color %d", uint8(c))
	}
	return json.Marshal(name)
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Symbol is what is printed on a card. Symbols 0 through 9 are number cards.
type Symbol uint8

const (
	Skip Symbol = iota + 10
	Reverse
	Draw2
	Draw4
	Wild
)

var symbolNames = map[Symbol]string{
	Skip:    "SKIP",
	Reverse: "REVERSE",
	Draw2:   "DRAW2",
	Draw4:   "DRAW4",
	Wild:    "WILD",
}

// Value returns the number symbol n. n must be between 0 and 9.
func Value(n int) (Symbol, error) {
	if n < 0 || n > 9 {
		return 0, fmt.Errorf("%w: value %d out of range 0..9", ErrInvalidCard, n)
	}
	return Symbol(n), nil
}

// IsValue reports whether s is a number symbol.
func (s Symbol) IsValue() bool {
	return s <= 9
}

// ImpliesBlack reports whether cards with this symbol are printed black.
func (s Symbol) ImpliesBlack() bool {
	return s == Wild || s == Draw4
}

func (s Symbol) valid() bool {
	return s.IsValue() || (s >= Skip && s <= Wild)
}

func (s Symbol) String() string {
	if s.IsValue() {
		return strconv.Itoa(int(s))
	}
	if name, ok := symbolNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Symbol(%d)", uint8(s))
}

// ParseSymbol parses the wire name of a symbol.
func ParseSymbol(s string) (Symbol, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return Value(n)
	}
	for sym, name := range symbolNames {
		if strings.EqualFold(name, s) {
			return sym, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol %q", s)
}

func (s Symbol) MarshalJSON() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("unknown symbol %d", uint8(s))
	}
	return json.Marshal(s.String())
}

func (s *Symbol) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSymbol(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Card is an immutable color/symbol pair. The zero value is a Red 0.
type Card struct {
	color  Color
	symbol Symbol
}

// New builds a card, enforcing that Wild and Draw4 are Black and nothing else is.
func New(color Color, symbol Symbol) (Card, error) {
	if _, ok := colorNames[color]; !ok {
		return Card{}, fmt.Errorf("%w: unknown color %d", ErrInvalidCard, uint8(color))
	}
	if !symbol.valid() {
		return Card{}, fmt.Errorf("%w: unknown symbol %d", ErrInvalidCard, uint8(symbol))
	}
	if symbol.ImpliesBlack() != (color == Black) {
		return Card{}, fmt.Errorf("%w: %s %s", ErrInvalidCard, color, symbol)
	}
	return Card{color: color, symbol: symbol}, nil
}

// MustNew is New for card literals known to be valid. It panics otherwise.
func MustNew(color Color, symbol Symbol) Card {
	c, err := New(color, symbol)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Card) Color() Color   { return c.color }
func (c Card) Symbol() Symbol { return c.symbol }

// ShouldBeBlack reports whether the card is printed black, whatever color it carries now.
func (c Card) ShouldBeBlack() bool {
	return c.symbol.ImpliesBlack()
}

// Morph gives a Wild or Draw4 the color chosen by the player who plays it.
func (c Card) Morph(color Color) (Card, error) {
	if !c.ShouldBeBlack() {
		return c, fmt.Errorf("%w: %s is not wild", ErrCannotMorph, c)
	}
	if color == Black {
		return c, fmt.Errorf("%w: target color must not be black", ErrCannotMorph)
	}
	if _, ok := colorNames[color]; !ok {
		return c, fmt.Errorf("%w: unknown color %d", ErrCannotMorph, uint8(color))
	}
	return Card{color: color, symbol: c.symbol}, nil
}

// Unmorph returns a card to its printed color, hiding a previously chosen color.
func (c Card) Unmorph() Card {
	if c.ShouldBeBlack() {
		return Card{color: Black, symbol: c.symbol}
	}
	return c
}

func (c Card) String() string {
	return c.color.String() + " " + c.symbol.String()
}

type wireCard struct {
	Color  Color  `json:"color"`
	Symbol Symbol `json:"symbol"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCard{Color: c.color, Symbol: c.symbol})
}

// UnmarshalJSON accepts only cards as they are printed; morphed colors never arrive from clients.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := New(w.Color, w.Symbol)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
