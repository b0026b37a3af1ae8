// internal/game/errors.go
package game

import "errors"

// Turn errors.
var (
	ErrNoOneIsPlaying  = errors.New("no one is playing")
	ErrPlayerOutOfTurn = errors.New("player is out of turn")
)

// Identity errors.
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNameTaken       = errors.New("player name already taken")
	ErrInvalidName     = errors.New("invalid player name")
	ErrNotHuman        = errors.New("player is not human")
)

// Play errors.
var (
	ErrNoSuchCard               = errors.New("player has no such card")
	ErrCardCannotBePlayed       = errors.New("card cannot be played")
	ErrSaidUnoWhenShouldNotHave = errors.New("said uno when should not have")
)

// Draw errors.
var (
	ErrCanPlayInstead = errors.New("player can play instead of drawing")
)

// Session lifecycle errors.
var (
	ErrAlreadyStarted  = errors.New("session already started")
	ErrSessionFinished = errors.New("session already finished")
	ErrNotInLobby      = errors.New("session is not accepting players")
	ErrSessionFull     = errors.New("session is full")
	ErrAuthorNotFound  = errors.New("session author not found")
	ErrNotAuthor       = errors.New("only the session author may do this")
	ErrDeckEmpty       = errors.New("deck is empty")
)
