package game

import (
	"context"
	"log"
	"time"
)

// HitReport is what an authoring peer submits after its local
// simulation settles: the replayable trajectory plus the resulting
// state. The relay treats the trajectory as an opaque passthrough and
// never re-simulates it.
type HitReport struct {
	UserID       string     `json:"userId"`
	RoomID       string     `json:"roomId"`
	KeyPositions Trajectory `json:"keyPositions"`
	State        *PoolState `json:"state"`
	Balls        []Ball     `json:"balls,omitempty"`
}

// StartMatch moves a waiting room into progress: racks the balls, seeds
// the host as first turn and starts the round clock. Host only; needs
// two connected active players.
func (r *Registry) StartMatch(roomID, userID string) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	if room.HostID != userID {
		return RoomSnapshot{}, ErrNotHost
	}
	if room.activeCount() < 2 {
		return RoomSnapshot{}, ErrNotEnough
	}

	room.Phase = PhaseInProgress
	room.Balls = StandardRack()
	room.State = NewPoolState()
	room.CurrentRound = Round{Round: 1, StartTime: time.Now(), UserID: room.HostID}
	room.Matchmaking = false
	room.Timestamp = time.Now()
	log.Printf("[TURN] room %s in progress, %s breaks", roomID, room.HostID)
	return room.Snapshot(), nil
}

// ApplyHit records a completed strike: stores the reported state and
// settled ball positions, then toggles the turn to the other active
// player and restarts the round clock. Only the current-turn player may
// submit (the legality of the shot itself is not judged here).
func (r *Registry) ApplyHit(report HitReport) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[report.RoomID]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	if room.Phase != PhaseInProgress {
		return RoomSnapshot{}, ErrNotInProgress
	}
	if room.CurrentRound.UserID != report.UserID {
		return RoomSnapshot{}, ErrNotYourTurn
	}

	if len(report.Balls) > 0 {
		room.Balls = append([]Ball(nil), report.Balls...)
	}
	if report.State != nil {
		room.State = report.State
		// Reflect group assignment onto the roster so late joiners see
		// who shoots what.
		for group, uid := range report.State.Players {
			if c := room.client(uid); c != nil {
				c.State.BallType = group
			}
		}
	}

	room.advanceTurn(report.UserID)
	room.Timestamp = time.Now()
	return room.Snapshot(), nil
}

// ForceExpiredTurns sweeps every in-progress room and passes the turn
// where the round clock has run out. The decision uses only the
// relay's own clock, never a client's. Expired rooms' snapshots are
// returned so the relay can broadcast the synthetic turn change.
func (r *Registry) ForceExpiredTurns(roundLimit time.Duration) []RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []RoomSnapshot
	for _, room := range r.rooms {
		if room.Phase != PhaseInProgress {
			continue
		}
		if time.Since(room.CurrentRound.StartTime) < roundLimit {
			continue
		}
		from := room.CurrentRound.UserID
		room.advanceTurn(from)
		room.Timestamp = time.Now()
		log.Printf("[TURN] room %s: turn for %s timed out, passing to %s",
			room.ID, from, room.CurrentRound.UserID)
		expired = append(expired, room.Snapshot())
	}
	return expired
}

// advanceTurn hands the turn to the other active player. Caller holds
// the registry lock.
func (room *Room) advanceTurn(fromUserID string) {
	next := fromUserID
	for _, c := range room.activePlayers() {
		if c.UserID != fromUserID {
			next = c.UserID
			break
		}
	}
	room.CurrentRound = Round{
		Round:     room.CurrentRound.Round + 1,
		StartTime: time.Now(),
		UserID:    next,
	}
	if room.State != nil {
		room.State.TurnIndex = (room.State.TurnIndex + 1) % 2
	}
}

// RoundWorker enforces the per-turn time limit server-side, the same
// shape as a poll-loop background worker: tick, sweep, notify.
type RoundWorker struct {
	registry *Registry
	limit    time.Duration
	poll     time.Duration
	notify   func(RoomSnapshot)
}

// NewRoundWorker builds a worker; notify is invoked once per room whose
// turn was force-passed.
func NewRoundWorker(registry *Registry, limit, poll time.Duration, notify func(RoomSnapshot)) *RoundWorker {
	return &RoundWorker{registry: registry, limit: limit, poll: poll, notify: notify}
}

// Run blocks until ctx is done.
func (w *RoundWorker) Run(ctx context.Context) {
	log.Printf("[TURN] round worker started (limit=%v poll=%v)", w.limit, w.poll)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[TURN] round worker stopped")
			return
		case <-ticker.C:
			for _, snap := range w.registry.ForceExpiredTurns(w.limit) {
				if w.notify != nil {
					w.notify(snap)
				}
			}
		}
	}
}
