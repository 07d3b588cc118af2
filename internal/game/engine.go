package game

import "math"

// Engine runs the discrete-step collision simulation. It is pure and
// stateless across calls: the same balls and strike always produce a
// bit-for-bit identical trajectory, which is what lets the receiving
// peer replay a shot instead of re-simulating it. No randomness may
// ever enter this package.
type Engine struct {
	Table *Table
	// SampleEvery controls keyframe cadence: 1 records every step,
	// N records every Nth (the replaying client interpolates).
	SampleEvery int
}

func NewEngine(table *Table) *Engine {
	return &Engine{Table: table, SampleEvery: 1}
}

// Simulate advances all balls until motion stops or the step budget is
// exhausted. The struck ball is the last in the slice. The slice is
// mutated in place; the final ball states are the authoritative
// post-shot state. The returned trajectory replays the shot frame by
// frame.
func (e *Engine) Simulate(balls []Ball, strike Strike) (Trajectory, error) {
	if len(balls) == 0 {
		return nil, ErrNoBalls
	}
	if err := strike.Validate(); err != nil {
		return nil, err
	}

	cue := &balls[len(balls)-1]
	speed := fix(strike.Power * MaxPower)
	cue.Velocity = NewVec2(math.Cos(strike.Angle)*speed, math.Sin(strike.Angle)*speed)

	rec := newRecorder(e.SampleEvery)

	for step := 0; step < MaxSteps; step++ {
		tags := make(map[int]string)

		// Integrate + friction. Exponential decay: stopping time
		// depends only on initial speed.
		anyMoving := false
		for i := range balls {
			b := &balls[i]
			if b.Pocketed {
				continue
			}
			if b.Velocity.Magnitude() > MinVelocity {
				anyMoving = true
				b.Position = b.Position.Plus(b.Velocity)
				b.Velocity = b.Velocity.Times(Friction)
			} else if !b.Velocity.IsZero() {
				b.Velocity = Vec2{}
			}
		}

		// Pocket capture and cushion rebound, folded into the same
		// per-step loop so replays stay deterministic. Runs before the
		// correction passes so an overlap introduced by a rebound is
		// separated within the same step.
		for i := range balls {
			b := &balls[i]
			if b.Pocketed {
				continue
			}
			if p := e.Table.pocketAt(b.Position); p != nil {
				b.Pocketed = true
				b.Velocity = Vec2{}
				tags[i] = CollisionPocket
				continue
			}
			if e.Table.reflect(b) {
				tags[i] = CollisionCushion
			}
		}

		// Narrow-phase correction passes over all unordered pairs.
		// Position is separated on every pass (prevents sinking); the
		// damped impulse fires only on the first pass of the step so
		// one contact never dissipates energy three times.
		for pass := 0; pass < CorrectionPasses; pass++ {
			for a := 0; a < len(balls); a++ {
				if balls[a].Pocketed {
					continue
				}
				for b := a + 1; b < len(balls); b++ {
					if balls[b].Pocketed {
						continue
					}
					if e.resolvePair(&balls[a], &balls[b], pass == 0) {
						tags[a] = CollisionBall
						tags[b] = CollisionBall
					}
				}
			}
		}

		if !anyMoving {
			rec.capture(balls, tags, true)
			break
		}
		rec.capture(balls, tags, step == MaxSteps-1)
	}

	return rec.frames, nil
}

// resolvePair separates an overlapping pair along the contact normal
// and, when impulse is set and the pair is approaching, exchanges a
// damped normal impulse. Equal masses: momentum is conserved, energy is
// dissipated. Returns true if the pair was in contact.
func (e *Engine) resolvePair(a, b *Ball, impulse bool) bool {
	delta := b.Position.Minus(a.Position)
	dist := delta.Magnitude()
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return false
	}

	// Exactly coincident centers get a fixed axis so the outcome stays
	// deterministic.
	normal := NewVec2(1, 0)
	if dist > 0 {
		normal = delta.Normalize()
	}

	half := fix((minDist - dist) / 2)
	a.Position = a.Position.Minus(normal.Times(half))
	b.Position = b.Position.Plus(normal.Times(half))

	if impulse {
		// rel > 0 means a is closing on b along the normal.
		rel := fix(a.Velocity.Dot(normal) - b.Velocity.Dot(normal))
		if rel > 0 {
			j := fix(rel * CollisionDamping)
			a.Velocity = a.Velocity.Minus(normal.Times(j))
			b.Velocity = b.Velocity.Plus(normal.Times(j))
		}
	}
	return true
}

// Settled reports whether every non-pocketed ball is at or below the
// settle threshold.
func Settled(balls []Ball) bool {
	for i := range balls {
		if !balls[i].Pocketed && balls[i].Velocity.Magnitude() > MinVelocity {
			return false
		}
	}
	return true
}
