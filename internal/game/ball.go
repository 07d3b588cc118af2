package game

import (
	"errors"
	"math"
)

// BallKind classifies a ball for group bookkeeping.
type BallKind string

const (
	KindCue     BallKind = "cue"
	KindSolid   BallKind = "solid"
	KindStriped BallKind = "striped"
	KindBlack   BallKind = "black"
)

// Ball is the mutable per-ball state the simulation advances. A ball set
// is owned by exactly one simulation run at a time.
type Ball struct {
	ID       int      `json:"id"`
	Kind     BallKind `json:"kind"`
	Radius   float64  `json:"radius"`
	Position Vec2     `json:"position"`
	Velocity Vec2     `json:"velocity"`
	Pocketed bool     `json:"pocketed"`
}

// KindForID maps standard 8-ball numbering to a kind: 0 cue, 1-7 solids,
// 8 the black ball, 9-15 stripes.
func KindForID(id int) BallKind {
	switch {
	case id == 0:
		return KindCue
	case id == 8:
		return KindBlack
	case id >= 1 && id <= 7:
		return KindSolid
	default:
		return KindStriped
	}
}

// Strike is a power+angle input that initiates one simulated shot.
// Immutable once submitted.
type Strike struct {
	Power  float64 `json:"power"` // 0..1
	Angle  float64 `json:"angle"` // radians
	UserID string  `json:"userId"`
	RoomID string  `json:"roomId"`
}

var (
	ErrNoBalls       = errors.New("game: no balls to simulate")
	ErrInvalidStrike = errors.New("game: strike power or angle is not a finite number in range")
)

// Validate fails fast on malformed input before any simulation state is
// touched.
func (s Strike) Validate() error {
	if math.IsNaN(s.Power) || math.IsInf(s.Power, 0) || s.Power < 0 || s.Power > 1 {
		return ErrInvalidStrike
	}
	if math.IsNaN(s.Angle) || math.IsInf(s.Angle, 0) {
		return ErrInvalidStrike
	}
	return nil
}
