package game

// Physics and table constants. Values are simulation units tuned
// empirically; both peers must use identical constants for replays
// to line up.
const (
	TableWidth  = 800.0
	TableHeight = 400.0

	BallRadius   = 10.0
	PocketRadius = 15.0

	NumBalls = 16 // 15 object balls + cue, cue last in the slice

	// MaxPower scales strike power in [0,1] to an initial velocity.
	// Tuned so a half-power strike from the head spot still carries
	// through the rack.
	MaxPower = 25.0

	// Friction is applied multiplicatively per step (exponential decay).
	Friction = 0.98

	// MinVelocity is the settle threshold; slower balls are stopped.
	MinVelocity = 0.1

	// CollisionDamping scales the normal impulse exchanged on contact,
	// dissipating energy the way real restitution loss does.
	CollisionDamping = 0.9

	// CushionRestitution scales the reflected normal velocity on a
	// cushion rebound.
	CushionRestitution = 0.7

	// MaxSteps bounds a single shot; friction normally settles the
	// table long before this.
	MaxSteps = 300

	// CorrectionPasses is the number of narrow-phase passes per step.
	CorrectionPasses = 3
)
