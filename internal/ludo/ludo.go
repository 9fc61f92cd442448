// Package ludo implements the board rules: dice, move legality, captures
// and turn order on the shared 52-cell track.
package ludo

import "math/rand"

const (
	TrackLength     = 52
	TokensPerPlayer = 4
	MaxPlayers      = 4

	// HomePos is the sentinel position for tokens that are off the track.
	HomePos = -1
)

// StartIndices maps a seat to its fixed entry cell on the shared track.
var StartIndices = [MaxPlayers]int{0, 13, 26, 39}

type TokenStatus string

const (
	StatusHome     TokenStatus = "home"
	StatusOnboard  TokenStatus = "onboard"
	StatusFinished TokenStatus = "finished"
)

type Token struct {
	Status TokenStatus `json:"status"`
	Pos    int         `json:"pos"`
}

type PlayerState struct {
	ColorIndex int                    `json:"colorIndex"`
	Tokens     [TokensPerPlayer]Token `json:"tokens"`
}

// GameState is the authoritative board state for one room. It is not safe
// for concurrent use; the server serializes access per room.
type GameState struct {
	Players       []PlayerState   `json:"players"`
	CurrentPlayer int             `json:"currentPlayer"`
	StartIndices  [MaxPlayers]int `json:"startIndices"`
	PendingRoll   *int            `json:"pendingRoll"`

	die func() int
}

type Option func(*GameState)

// WithDie replaces the die. Tests use this to make rolls deterministic.
func WithDie(die func() int) Option {
	return func(g *GameState) { g.die = die }
}

// NewGame creates a fresh board for playerCount seats: every token at home,
// seat 0 to move first.
func NewGame(playerCount int, opts ...Option) *GameState {
	g := &GameState{
		Players:      make([]PlayerState, playerCount),
		StartIndices: StartIndices,
		die:          func() int { return rand.Intn(6) + 1 },
	}
	for i := range g.Players {
		g.Players[i].ColorIndex = i
		for t := range g.Players[i].Tokens {
			g.Players[i].Tokens[t] = Token{Status: StatusHome, Pos: HomePos}
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone returns a deep copy, used for broadcast snapshots taken under the
// room lock so socket writes can happen outside it.
func (g *GameState) Clone() *GameState {
	c := &GameState{
		Players:       make([]PlayerState, len(g.Players)),
		CurrentPlayer: g.CurrentPlayer,
		StartIndices:  g.StartIndices,
	}
	copy(c.Players, g.Players)
	if g.PendingRoll != nil {
		v := *g.PendingRoll
		c.PendingRoll = &v
	}
	return c
}
