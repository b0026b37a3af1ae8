// internal/game/events.go
package game

import (
	"github.com/jason-s-yu/uno/internal/card"
)

// MessageType is the "type" field of every protocol message.
type MessageType string

const (
	TypeStatus      MessageType = "STATUS"
	TypePlayCard    MessageType = "PLAY CARD"
	TypeDraw        MessageType = "DRAW"
	TypeFinish      MessageType = "FINISH"
	TypePenalty     MessageType = "PENALTY"
	TypeGainedCards MessageType = "GAINED CARDS"
)

// Status is the lifecycle state of a session.
type Status string

const (
	Lobby    Status = "LOBBY"
	Running  Status = "RUNNING"
	Finished Status = "FINISHED"
)

// Message is anything the session sends to a transport.
type Message interface {
	MessageType() MessageType
}

// LobbyStatus is the snapshot sent while players are still joining.
type LobbyStatus struct {
	Type    MessageType `json:"type"`
	Status  Status      `json:"status"`
	Author  string      `json:"author"`
	You     string      `json:"you"`
	Players []string    `json:"players"`
}

// PlayerCards is how other players' hands are shown: by count only.
type PlayerCards struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"`
}

// RunningStatus is the per-viewer snapshot of a running session. Cards is the viewer's own hand.
type RunningStatus struct {
	Type            MessageType   `json:"type"`
	Status          Status        `json:"status"`
	Author          string        `json:"author"`
	You             string        `json:"you"`
	CurrentPlayer   string        `json:"currentPlayer"`
	Players         []PlayerCards `json:"players"`
	FinishedPlayers []string      `json:"finishedPlayers"`
	Cards           []card.Card   `json:"cards"`
	TopCard         card.Card     `json:"topCard"`
	ActiveSymbol    *card.Symbol  `json:"activeSymbol,omitempty"`
	Clockwise       bool          `json:"clockwise"`
}

// FinishedStatus is sent to everyone when the last human finishes.
type FinishedStatus struct {
	Type            MessageType `json:"type"`
	Status          Status      `json:"status"`
	Author          string      `json:"author"`
	You             string      `json:"you"`
	FinishedPlayers []string    `json:"finishedPlayers"`
}

// PlayCardMessage is broadcast after every successful play. Next is empty when the session ended.
type PlayCardMessage struct {
	Type MessageType `json:"type"`
	Who  string      `json:"who"`
	Next string      `json:"next"`
	Card card.Card   `json:"card"`
}

// DrawMessage is broadcast after a draw and only carries the count.
type DrawMessage struct {
	Type  MessageType `json:"type"`
	Who   string      `json:"who"`
	Next  string      `json:"next"`
	Cards int         `json:"cards"`
}

type FinishMessage struct {
	Type MessageType `json:"type"`
	Who  string      `json:"who"`
}

// PenaltyMessage reveals penalty cards to the penalized player only.
type PenaltyMessage struct {
	Type  MessageType `json:"type"`
	Who   string      `json:"who"`
	Cards []card.Card `json:"cards"`
}

// GainedCardsMessage tells everyone else how many penalty cards a player took.
type GainedCardsMessage struct {
	Type   MessageType `json:"type"`
	Who    string      `json:"who"`
	Number int         `json:"number"`
}

func (LobbyStatus) MessageType() MessageType        { return TypeStatus }
func (RunningStatus) MessageType() MessageType      { return TypeStatus }
func (FinishedStatus) MessageType() MessageType     { return TypeStatus }
func (PlayCardMessage) MessageType() MessageType    { return TypePlayCard }
func (DrawMessage) MessageType() MessageType        { return TypeDraw }
func (FinishMessage) MessageType() MessageType      { return TypeFinish }
func (PenaltyMessage) MessageType() MessageType     { return TypePenalty }
func (GainedCardsMessage) MessageType() MessageType { return TypeGainedCards }

// envelope is a message waiting in the outbox together with its target.
type envelope struct {
	to  Transport
	msg Message
}
