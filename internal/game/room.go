package game

import (
	"log"
	"time"
)

// Phase is the room's match lifecycle state.
type Phase string

const (
	PhaseWaiting    Phase = "WAITING_FOR_PLAYERS"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinished   Phase = "FINISHED"
)

// Round is the current-turn metadata: whose strike it is and when the
// turn clock started. StartTime is always the server's clock.
type Round struct {
	Round     int       `json:"round"`
	StartTime time.Time `json:"startTime"`
	UserID    string    `json:"userId"`
}

// Room groups up to two active players plus spectators sharing one
// match. Membership and host identity are the only durable
// cross-request state; ball positions and PoolState are the last value
// a completed strike reported, kept so spectators and late joiners can
// catch up. A room lives as long as at least one member does.
//
// All fields are guarded by the owning Registry's mutex.
type Room struct {
	ID           string
	Clients      []*Client
	HostID       string
	Matchmaking  bool
	Phase        Phase
	CurrentRound Round
	Timestamp    time.Time

	Balls []Ball
	State *PoolState
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		Phase:     PhaseWaiting,
		Timestamp: time.Now(),
	}
}

// RoomSnapshot is the wire projection of a Room: players instead of
// clients, no socket handles.
type RoomSnapshot struct {
	ID           string     `json:"id"`
	Players      []Player   `json:"players"`
	HostID       string     `json:"hostId"`
	Matchmaking  bool       `json:"matchmaking"`
	Phase        Phase      `json:"phase"`
	CurrentRound *Round     `json:"currentRound,omitempty"`
	Balls        []Ball     `json:"balls,omitempty"`
	State        *PoolState `json:"state,omitempty"`
	Timestamp    int64      `json:"timestamp"`
}

// Snapshot projects the room for the wire. Caller holds the registry
// lock.
func (room *Room) Snapshot() RoomSnapshot {
	players := make([]Player, 0, len(room.Clients))
	for _, c := range room.Clients {
		players = append(players, c.player(room.ID))
	}
	snap := RoomSnapshot{
		ID:          room.ID,
		Players:     players,
		HostID:      room.HostID,
		Matchmaking: room.Matchmaking,
		Phase:       room.Phase,
		Timestamp:   room.Timestamp.UnixMilli(),
	}
	if room.Phase != PhaseWaiting {
		round := room.CurrentRound
		snap.CurrentRound = &round
		snap.Balls = append([]Ball(nil), room.Balls...)
		if room.State != nil {
			state := *room.State
			snap.State = &state
		}
	}
	return snap
}

// rebalance settles the room after a member was removed. A match
// missing an active player cannot continue; a waiting room pulls the
// oldest spectator into the freed slot. Caller holds the registry lock.
func (room *Room) rebalance(maxActive int) {
	if room.Phase == PhaseInProgress && room.activeCount() < 2 {
		room.Phase = PhaseFinished
		log.Printf("[TURN] room %s finished, an active player left", room.ID)
		return
	}
	if room.Phase == PhaseWaiting && room.activeCount() < maxActive {
		for _, c := range room.Clients {
			if c.Spectator {
				c.Spectator = false
				log.Printf("[ROOM] %s promoted from spectator in room %s", c.UserID, room.ID)
				break
			}
		}
	}
}

// client finds a member by user id. Caller holds the registry lock.
func (room *Room) client(userID string) *Client {
	for _, c := range room.Clients {
		if c.UserID == userID {
			return c
		}
	}
	return nil
}

func (room *Room) remove(userID string) {
	for i, c := range room.Clients {
		if c.UserID == userID {
			room.Clients = append(room.Clients[:i], room.Clients[i+1:]...)
			return
		}
	}
}

// activeCount counts non-spectator members.
func (room *Room) activeCount() int {
	n := 0
	for _, c := range room.Clients {
		if !c.Spectator {
			n++
		}
	}
	return n
}

// activePlayers returns the non-spectator members in join order; only
// these two ever hold the turn.
func (room *Room) activePlayers() []*Client {
	out := make([]*Client, 0, 2)
	for _, c := range room.Clients {
		if !c.Spectator {
			out = append(out, c)
		}
	}
	return out
}

// oldestActive returns the earliest-joined active player's id, for host
// migration.
func (room *Room) oldestActive() string {
	var best *Client
	for _, c := range room.Clients {
		if c.Spectator {
			continue
		}
		if best == nil || c.JoinedAt.Before(best.JoinedAt) {
			best = c
		}
	}
	if best == nil {
		// Only spectators left; the oldest of them takes over.
		best = room.Clients[0]
		for _, c := range room.Clients {
			if c.JoinedAt.Before(best.JoinedAt) {
				best = c
			}
		}
	}
	return best.UserID
}
