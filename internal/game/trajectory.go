package game

// Collision tags attached to a ball's snapshot for the frame the
// contact happened. Consumed by the replaying peer for sound/VFX only.
const (
	CollisionBall    = "ball"
	CollisionCushion = "cushion"
	CollisionPocket  = "pocket"
)

// BallSnapshot is one ball's state at one simulated frame.
type BallSnapshot struct {
	Position      Vec2   `json:"position"`
	Hidden        bool   `json:"hidden"`
	CollisionKind string `json:"collisionKind,omitempty"`
}

// Keyframe is a snapshot of every ball for one frame, in ball-slice
// order.
type Keyframe []BallSnapshot

// Trajectory is the ordered, finite sequence of keyframes produced by
// one strike. It is produced once by the authoring peer and replayed,
// never re-simulated, by the receiver.
type Trajectory []Keyframe

// recorder samples engine state into a Trajectory. One recorder per
// strike; it holds no state across shots.
type recorder struct {
	every  int
	step   int
	frames Trajectory
}

func newRecorder(sampleEvery int) *recorder {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	return &recorder{every: sampleEvery}
}

// capture records the current ball states if the step falls on the
// sampling cadence. tags maps ball-slice index to a collision kind for
// this frame. force bypasses the cadence so the final settled frame is
// always present.
func (r *recorder) capture(balls []Ball, tags map[int]string, force bool) {
	r.step++
	if !force && (r.step-1)%r.every != 0 {
		return
	}
	frame := make(Keyframe, len(balls))
	for i := range balls {
		frame[i] = BallSnapshot{
			Position:      balls[i].Position,
			Hidden:        balls[i].Pocketed,
			CollisionKind: tags[i],
		}
	}
	r.frames = append(r.frames, frame)
}
