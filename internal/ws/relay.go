package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Hosfad/pooljs-remastered-sub000/internal/config"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the router middleware
	},
}

// Relay routes typed events between the members of a room. It never
// simulates physics itself: an authoring peer's trajectory passes
// through opaque and untouched.
type Relay struct {
	registry *game.Registry
	cfg      *config.Config
	routes   map[string]route
	bridge   *Bridge
}

func NewRelay(registry *game.Registry, cfg *config.Config) *Relay {
	r := &Relay{
		registry: registry,
		cfg:      cfg,
	}
	r.routes = map[string]route{
		EventCreateRoom: {
			middlewares: []Middleware{r.parseIdentity},
			handle:      r.handleJoin,
		},
		EventJoinRoom: {
			middlewares: []Middleware{r.parseIdentity},
			handle:      r.handleJoin,
		},
		EventGameStart: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth, r.requireHost},
			handle:      r.handleGameStart,
		},
		EventMatchMakeStart: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth, r.requireHost},
			handle:      r.handleMatchMake(true),
		},
		EventMatchMakeCancel: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth, r.requireHost},
			handle:      r.handleMatchMake(false),
		},
		EventKickPlayer: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth, r.requireHost},
			handle:      r.handleKick,
		},
		EventPull: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth},
			handle:      r.handlePull,
		},
		EventHit: {
			middlewares: []Middleware{r.parseIdentity, r.roomAuth},
			handle:      r.handleHit,
		},
	}
	return r
}

// SetBridge attaches the optional cross-instance event bridge.
func (r *Relay) SetBridge(b *Bridge) {
	r.bridge = b
}

// HandleWebSocket upgrades the HTTP request and starts the connection's
// pumps. Identity is announced later via join; an upgraded socket that
// never joins simply never receives broadcasts.
func (r *Relay) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}
	client := newClient(r, conn)
	go client.writePump()
	go client.readPump()
}

// BroadcastRoom fans one envelope out to every open socket in the room,
// sender included, so every UI converges the same way without
// special-casing a local echo. Dead sockets are skipped; the rest still
// get the frame.
func (r *Relay) BroadcastRoom(roomID, event string, data interface{}) {
	raw, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("[WS] marshal broadcast %s failed: %v", event, err)
		return
	}
	r.deliverLocal(roomID, raw)
	if r.bridge != nil {
		r.bridge.Publish(roomID, raw)
	}
}

// deliverLocal hands a pre-marshaled frame to the room members on this
// instance.
func (r *Relay) deliverLocal(roomID string, raw []byte) {
	for _, conn := range r.registry.Connections(roomID) {
		if c, ok := conn.(*Client); ok {
			c.deliverRaw(raw)
		} else {
			// Registry can hold non-socket connections in tests.
			var env Envelope
			if err := json.Unmarshal(raw, &env); err == nil {
				conn.Deliver(env.Event, env.Data)
			}
		}
	}
}

// NotifyRoomUpdate broadcasts the room snapshot; the round worker also
// calls this when it force-passes a turn.
func (r *Relay) NotifyRoomUpdate(snap game.RoomSnapshot) {
	r.BroadcastRoom(snap.ID, EventUpdateRoom, snap)
}

// dropClient runs the leave path when a socket dies. Socket close is
// the only cancellation signal: the client stops receiving broadcasts,
// nothing already broadcast is rolled back.
func (r *Relay) dropClient(c *Client) {
	userID, roomID := c.session()
	if userID == "" || roomID == "" {
		return
	}
	// Reconnect may have already replaced this socket in the slot;
	// only evict if the registry still points at us.
	if conn, ok := r.registry.Lookup(roomID, userID); ok && conn != game.Connection(c) {
		return
	}
	snap, alive, changed := r.registry.Leave(roomID, userID)
	log.Printf("[WS] %s left room %s", userID, roomID)
	if alive && changed {
		r.NotifyRoomUpdate(snap)
	}
}

// --- terminal handlers ---

type joinPayload struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	RoomID      string `json:"roomId,omitempty"`
	EquippedCue string `json:"equippedCue,omitempty"`
}

// handleJoin serves create-room and join-room: resolve or create the
// room, bind the socket to the user's slot and ack with a full
// snapshot.
func (r *Relay) handleJoin(ctx *Ctx) {
	var p joinPayload
	if err := json.Unmarshal(ctx.Data, &p); err != nil {
		ctx.Client.Deliver(EventJoinRoomResponse, wireError(CodeBadPayload, "invalid join payload"))
		return
	}
	snap, err := r.registry.JoinOrCreate(p.RoomID, p.UserID, p.Name, p.Photo, ctx.Client)
	if err != nil {
		ctx.Client.Deliver(EventJoinRoomResponse, authError(err))
		return
	}
	ctx.Client.setSession(p.UserID, snap.ID)

	if p.EquippedCue != "" {
		if updated, err := r.registry.SetEquippedCue(snap.ID, p.UserID, p.EquippedCue); err == nil {
			snap = updated
		}
	}

	ctx.Client.Deliver(EventJoinRoomResponse, success(snap))
	r.BroadcastRoom(snap.ID, EventUpdateRoom, snap)

	if snap.Phase == game.PhaseWaiting {
		if activeCount(snap) < 2 {
			ctx.Client.Deliver(EventShowLoading, showLoadingPayload{Show: true, Message: "Waiting for an opponent..."})
		} else {
			// Second player arrived; the host can start.
			r.BroadcastRoom(snap.ID, EventShowLoading, showLoadingPayload{Show: false})
		}
	}
}

// handleGameStart racks the table and broadcasts game-init. Host only,
// enforced here rather than trusted to the client.
func (r *Relay) handleGameStart(ctx *Ctx) {
	snap, err := r.registry.StartMatch(ctx.RoomID, ctx.UserID)
	if err != nil {
		ctx.Client.Deliver(EventGameStart, authError(err))
		return
	}
	r.BroadcastRoom(snap.ID, EventGameInit, snap)
}

func (r *Relay) handleMatchMake(on bool) HandlerFunc {
	return func(ctx *Ctx) {
		snap, err := r.registry.SetMatchmaking(ctx.RoomID, ctx.UserID, on)
		if err != nil {
			ctx.Client.Deliver(responseEvent(ctx.Event), authError(err))
			return
		}
		ctx.Client.Deliver(responseEvent(ctx.Event), success(snap))
		r.BroadcastRoom(snap.ID, EventUpdateRoom, snap)
	}
}

type kickPayload struct {
	UserID       string `json:"userId"`
	RoomID       string `json:"roomId"`
	KickTargetID string `json:"kickTargetId"`
}

func (r *Relay) handleKick(ctx *Ctx) {
	var p kickPayload
	if err := json.Unmarshal(ctx.Data, &p); err != nil || p.KickTargetID == "" {
		ctx.Client.Deliver(EventKickPlayer, wireError(CodeBadPayload, "kickTargetId is required"))
		return
	}
	snap, kicked, err := r.registry.Kick(ctx.RoomID, ctx.UserID, p.KickTargetID)
	if err != nil {
		ctx.Client.Deliver(EventKickPlayer, authError(err))
		return
	}
	if kicked != nil {
		kicked.Deliver(EventShowErrorModal, showErrorModalPayload{
			Title:       "Removed from room",
			Description: "The host removed you from the room.",
			CloseAfter:  5000,
		})
		kicked.Close()
	}
	r.BroadcastRoom(snap.ID, EventUpdateRoom, snap)
}

// handlePull relays an aim/power preview to the whole room, sender
// included. Pure passthrough: the payload is forwarded as received.
func (r *Relay) handlePull(ctx *Ctx) {
	if ctx.Room.Phase != game.PhaseInProgress {
		ctx.Client.Deliver(EventPull, wireError(CodeNotInProgress, "match is not in progress"))
		return
	}
	r.broadcastRaw(ctx.RoomID, EventPull, ctx.Data)
}

// handleHit records a completed, client-simulated strike: turn
// bookkeeping on the relay, trajectory passthrough to the room. The
// trajectory is never re-simulated here.
func (r *Relay) handleHit(ctx *Ctx) {
	var report game.HitReport
	if err := json.Unmarshal(ctx.Data, &report); err != nil {
		ctx.Client.Deliver(EventHit, wireError(CodeBadPayload, "invalid hit payload"))
		return
	}
	snap, err := r.registry.ApplyHit(report)
	if err != nil {
		ctx.Client.Deliver(EventHit, authError(err))
		return
	}
	r.broadcastRaw(ctx.RoomID, EventHit, ctx.Data)
	r.BroadcastRoom(snap.ID, EventUpdateRoom, snap)
}

// broadcastRaw forwards an already-encoded payload under an event key.
func (r *Relay) broadcastRaw(roomID, event string, data json.RawMessage) {
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] marshal raw broadcast %s failed: %v", event, err)
		return
	}
	r.deliverLocal(roomID, raw)
	if r.bridge != nil {
		r.bridge.Publish(roomID, raw)
	}
}

func activeCount(snap game.RoomSnapshot) int {
	n := 0
	for _, p := range snap.Players {
		if !p.Spectator {
			n++
		}
	}
	return n
}
