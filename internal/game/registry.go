package game

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is the server-only transport handle a client owns. The
// relay's socket type implements it; keeping it an interface here keeps
// transport internals out of game state and makes the registry testable
// without a network.
type Connection interface {
	// Deliver queues an envelope for the socket. Must never block;
	// returns false if the message was dropped.
	Deliver(event string, data interface{}) bool
	Close()
	Open() bool
}

// ClientState carries the per-player cosmetic/match flags the UI layer
// reads.
type ClientState struct {
	BallType    BallGroup `json:"ballType,omitempty"`
	EquippedCue string    `json:"equippedCue,omitempty"`
}

// Client is the server-side record for one joined user: identity plus a
// live socket handle.
type Client struct {
	UserID    string
	Name      string
	Photo     string
	Spectator bool
	State     ClientState
	Conn      Connection
	JoinedAt  time.Time
}

// Player is the wire projection of a Client with the socket stripped.
type Player struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Photo     string      `json:"photo"`
	RoomID    string      `json:"roomId"`
	Spectator bool        `json:"isSpectator"`
	State     ClientState `json:"state"`
}

func (c *Client) player(roomID string) Player {
	return Player{
		ID:        c.UserID,
		Name:      c.Name,
		Photo:     c.Photo,
		RoomID:    roomID,
		Spectator: c.Spectator,
		State:     c.State,
	}
}

// Registry errors surfaced to the relay as authorization/application
// failures.
var (
	ErrRoomNotFound   = errors.New("game: room not found")
	ErrClientNotFound = errors.New("game: client not found in room")
	ErrNotHost        = errors.New("game: action requires the room host")
	ErrNotEnough      = errors.New("game: need two active players to start")
	ErrNotInProgress  = errors.New("game: match is not in progress")
	ErrNotYourTurn    = errors.New("game: not this player's turn")
)

// Registry is the in-memory room directory. It is the only mutable
// structure shared across connections, so every room mutation runs
// under its mutex: a single writer at a time keeps concurrent joins and
// kicks from losing updates. Rooms are never persisted; state crosses
// to the relay layer as value snapshots.
type Registry struct {
	mu               sync.RWMutex
	rooms            map[string]*Room
	maxActivePlayers int
}

func NewRegistry(maxActivePlayers int) *Registry {
	if maxActivePlayers <= 0 {
		maxActivePlayers = 2
	}
	return &Registry{
		rooms:            make(map[string]*Room),
		maxActivePlayers: maxActivePlayers,
	}
}

// JoinOrCreate attaches userID to roomID, creating the room when the id
// is empty or unknown. The first client in becomes host for the room's
// lifetime (modulo host migration on disconnect). Joiners past the
// active-player cap are spectators. Idempotent: rejoining with the same
// userID reuses the existing slot and swaps in the new connection.
func (r *Registry) JoinOrCreate(roomID, userID, name, photo string, conn Connection) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		if roomID == "" {
			roomID = uuid.NewString()
		}
		room = newRoom(roomID)
		r.rooms[roomID] = room
		log.Printf("[ROOM] created room %s", roomID)
	}

	if c := room.client(userID); c != nil {
		// Reconnect by id: same slot, fresh socket.
		if c.Conn != nil && c.Conn != conn && c.Conn.Open() {
			c.Conn.Close()
		}
		c.Conn = conn
		room.Timestamp = time.Now()
		return room.Snapshot(), nil
	}

	c := &Client{
		UserID:    userID,
		Name:      name,
		Photo:     photo,
		Spectator: room.activeCount() >= r.maxActivePlayers,
		Conn:      conn,
		JoinedAt:  time.Now(),
	}
	room.Clients = append(room.Clients, c)
	if room.HostID == "" {
		room.HostID = userID
	}
	room.Timestamp = time.Now()
	log.Printf("[ROOM] %s joined room %s (spectator=%v host=%s)", userID, room.ID, c.Spectator, room.HostID)
	return room.Snapshot(), nil
}

// Get returns a live view of the room: only clients with open sockets
// are listed as members. Unknown rooms return ok=false. Closed sockets
// are filtered from the view but evicted only on the Leave path.
func (r *Registry) Get(roomID string) (RoomSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}
	snap := room.Snapshot()
	live := snap.Players[:0]
	for _, p := range snap.Players {
		if c := room.client(p.ID); c != nil && c.Conn != nil && c.Conn.Open() {
			live = append(live, p)
		}
	}
	snap.Players = live
	return snap, true
}

// Authorize resolves a live (room, client) pair for session-required
// events.
func (r *Registry) Authorize(roomID, userID string) (RoomSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	c := room.client(userID)
	if c == nil || c.Conn == nil || !c.Conn.Open() {
		return RoomSnapshot{}, ErrClientNotFound
	}
	return room.Snapshot(), nil
}

// Kick removes targetID from the room. Host only. The removed client's
// connection is returned so the relay can notify it before closing;
// the registry itself never writes to sockets. Removal settles the room
// the same way Leave does: an emptied room is evicted and a host
// kicking themselves hands the room to the oldest remaining active
// player, so host-only actions keep working for the survivors.
func (r *Registry) Kick(roomID, hostID, targetID string) (RoomSnapshot, Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, nil, ErrRoomNotFound
	}
	if room.HostID != hostID {
		return RoomSnapshot{}, nil, ErrNotHost
	}
	c := room.client(targetID)
	if c == nil {
		return RoomSnapshot{}, nil, ErrClientNotFound
	}
	room.remove(targetID)
	log.Printf("[ROOM] %s kicked from room %s by host %s", targetID, roomID, hostID)

	if len(room.Clients) == 0 {
		delete(r.rooms, roomID)
		log.Printf("[ROOM] room %s emptied, evicted", roomID)
		return RoomSnapshot{}, c.Conn, nil
	}
	if room.HostID == targetID {
		room.HostID = room.oldestActive()
		log.Printf("[ROOM] host kicked out of room %s, migrated to %s", roomID, room.HostID)
	}
	room.rebalance(r.maxActivePlayers)
	room.Timestamp = time.Now()
	return room.Snapshot(), c.Conn, nil
}

// Leave detaches a closed connection's client. When the host leaves,
// the oldest remaining active player inherits the room; an emptied room
// is evicted. Returns the post-leave snapshot and whether membership
// changed; ok=false means the room was evicted.
func (r *Registry) Leave(roomID, userID string) (snap RoomSnapshot, ok, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return RoomSnapshot{}, false, false
	}
	if room.client(userID) == nil {
		return room.Snapshot(), true, false
	}
	room.remove(userID)

	if len(room.Clients) == 0 {
		delete(r.rooms, roomID)
		log.Printf("[ROOM] room %s emptied, evicted", roomID)
		return RoomSnapshot{}, false, true
	}

	if room.HostID == userID {
		room.HostID = room.oldestActive()
		log.Printf("[ROOM] host left room %s, migrated to %s", roomID, room.HostID)
	}

	room.rebalance(r.maxActivePlayers)
	room.Timestamp = time.Now()
	return room.Snapshot(), true, true
}

// SetEquippedCue records the cosmetic cue a member announced on join.
func (r *Registry) SetEquippedCue(roomID, userID, cue string) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	c := room.client(userID)
	if c == nil {
		return RoomSnapshot{}, ErrClientNotFound
	}
	c.State.EquippedCue = cue
	return room.Snapshot(), nil
}

// SetMatchmaking toggles the room's discoverability flag. Host only.
// Matchmaking here means "mark this room as waiting for an opponent",
// not a cross-room pairing engine.
func (r *Registry) SetMatchmaking(roomID, userID string, on bool) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}
	if room.HostID != userID {
		return RoomSnapshot{}, ErrNotHost
	}
	room.Matchmaking = on
	room.Timestamp = time.Now()
	return room.Snapshot(), nil
}

// Connections returns the open sockets of every room member, sender
// included; the relay fans broadcasts out over this list.
func (r *Registry) Connections(roomID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	conns := make([]Connection, 0, len(room.Clients))
	for _, c := range room.Clients {
		if c.Conn != nil && c.Conn.Open() {
			conns = append(conns, c.Conn)
		}
	}
	return conns
}

// Lookup returns the open socket for one member, for targeted sends.
func (r *Registry) Lookup(roomID, userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	c := room.client(userID)
	if c == nil || c.Conn == nil || !c.Conn.Open() {
		return nil, false
	}
	return c.Conn, true
}

// Discoverable lists rooms flagged by matchmaking, for the lobby.
func (r *Registry) Discoverable() []RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomSnapshot, 0)
	for _, room := range r.rooms {
		if room.Matchmaking {
			out = append(out, room.Snapshot())
		}
	}
	return out
}
