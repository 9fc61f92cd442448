package ludo

import "errors"

var (
	ErrNotYourTurn    = errors.New("NOT_YOUR_TURN: not your turn")
	ErrNoPendingRoll  = errors.New("NO_PENDING_ROLL: roll the die first")
	ErrNeedSixToEnter = errors.New("NEED_SIX_TO_ENTER: need a 6 to enter the board")
	ErrTokenFinished  = errors.New("TOKEN_FINISHED: token already finished")
	ErrInvalidToken   = errors.New("INVALID_TOKEN: token index out of range")
)

// Capture identifies a token sent back home by a move.
type Capture struct {
	PlayerIndex int `json:"player"`
	TokenIndex  int `json:"token"`
}

// MoveResult describes one applied move. FromPos is the true pre-move
// position (HomePos when the token entered from home).
type MoveResult struct {
	PlayerIndex int
	TokenIndex  int
	FromPos     int
	ToPos       int
	Status      TokenStatus
	Roll        int
	Captures    []Capture
	ExtraTurn   bool
}

// Roll draws the die for the current player and stores the value as the
// pending roll. A second roll before a move replaces the pending value;
// there is no roll lock.
func (g *GameState) Roll(playerIndex int) (int, error) {
	if playerIndex != g.CurrentPlayer {
		return 0, ErrNotYourTurn
	}
	value := g.die()
	g.PendingRoll = &value
	return value, nil
}

// Move consumes the pending roll to advance one token. On success the
// pending roll is cleared, captures on the landing cell are resolved in the
// same transaction, and the turn passes unless the consumed roll was a 6.
// On error the state is unchanged.
func (g *GameState) Move(playerIndex, tokenIndex int) (*MoveResult, error) {
	if playerIndex != g.CurrentPlayer {
		return nil, ErrNotYourTurn
	}
	if tokenIndex < 0 || tokenIndex >= TokensPerPlayer {
		return nil, ErrInvalidToken
	}
	if g.PendingRoll == nil {
		return nil, ErrNoPendingRoll
	}
	roll := *g.PendingRoll

	tok := &g.Players[playerIndex].Tokens[tokenIndex]
	res := &MoveResult{
		PlayerIndex: playerIndex,
		TokenIndex:  tokenIndex,
		FromPos:     tok.Pos,
		Roll:        roll,
	}

	switch tok.Status {
	case StatusHome:
		if roll != 6 {
			return nil, ErrNeedSixToEnter
		}
		tok.Status = StatusOnboard
		tok.Pos = g.StartIndices[playerIndex]
	case StatusOnboard:
		tok.Pos = (tok.Pos + roll) % TrackLength
	default:
		return nil, ErrTokenFinished
	}

	res.ToPos = tok.Pos
	res.Status = tok.Status
	g.PendingRoll = nil

	res.Captures = g.captureAt(tok.Pos, playerIndex)

	// Rolling a 6 grants an extra turn; evaluated on the roll just consumed.
	res.ExtraTurn = roll == 6
	if !res.ExtraTurn {
		g.CurrentPlayer = (g.CurrentPlayer + 1) % len(g.Players)
	}
	return res, nil
}

// captureAt sends every other player's onboard token on the landing cell
// back home. All matching tokens are captured in one pass.
func (g *GameState) captureAt(pos, ownerIndex int) []Capture {
	var captures []Capture
	for pi := range g.Players {
		if pi == ownerIndex {
			continue
		}
		for ti := range g.Players[pi].Tokens {
			t := &g.Players[pi].Tokens[ti]
			if t.Status == StatusOnboard && t.Pos == pos {
				t.Status = StatusHome
				t.Pos = HomePos
				captures = append(captures, Capture{PlayerIndex: pi, TokenIndex: ti})
			}
		}
	}
	return captures
}
