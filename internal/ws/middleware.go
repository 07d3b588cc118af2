package ws

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/Hosfad/pooljs-remastered-sub000/internal/game"
)

// Ctx carries one request through its middleware chain to the terminal
// handler.
type Ctx struct {
	Client *Client
	Event  string
	Data   json.RawMessage

	// Filled by parseIdentity / roomAuth.
	UserID string
	RoomID string
	Room   game.RoomSnapshot
}

// Middleware validates or enriches a request. A non-nil return
// short-circuits the chain: the error is replied on the same event key
// and the handler never runs.
type Middleware func(*Ctx) *WireError

// HandlerFunc is the terminal handler for an event.
type HandlerFunc func(*Ctx)

type route struct {
	middlewares []Middleware
	handle      HandlerFunc
}

// dispatch looks up the route for the envelope's event key and runs the
// chain. Unknown events are protocol errors: logged and dropped.
func (r *Relay) dispatch(c *Client, env Envelope) {
	rt, ok := r.routes[env.Event]
	if !ok {
		log.Printf("[WS] unknown event %q from %s", env.Event, c.describe())
		return
	}
	ctx := &Ctx{Client: c, Event: env.Event, Data: env.Data}
	for _, mw := range rt.middlewares {
		if werr := mw(ctx); werr != nil {
			c.Deliver(env.Event, werr)
			return
		}
	}
	rt.handle(ctx)
}

// identity is the minimal shape every request carries.
type identity struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// parseIdentity pulls userId/roomId out of the payload without
// consuming the rest of it.
func (r *Relay) parseIdentity(ctx *Ctx) *WireError {
	var id identity
	if err := json.Unmarshal(ctx.Data, &id); err != nil {
		return wireError(CodeBadPayload, "payload is not a JSON object")
	}
	if id.UserID == "" {
		return wireError(CodeBadPayload, "userId is required")
	}
	ctx.UserID = id.UserID
	ctx.RoomID = id.RoomID
	return nil
}

// roomAuth rejects requests whose roomId/userId do not resolve to a
// live room and client. Join deliberately does not use it: room
// creation is the one unauthenticated event.
func (r *Relay) roomAuth(ctx *Ctx) *WireError {
	if ctx.RoomID == "" {
		return wireError(CodeBadPayload, "roomId is required")
	}
	snap, err := r.registry.Authorize(ctx.RoomID, ctx.UserID)
	if err != nil {
		return authError(err)
	}
	ctx.Room = snap
	return nil
}

// requireHost keeps host-only actions server-enforced instead of
// trusting the client UI to hide the button.
func (r *Relay) requireHost(ctx *Ctx) *WireError {
	if ctx.Room.HostID != ctx.UserID {
		return wireError(CodeNotHost, "only the host can do that")
	}
	return nil
}

// authError maps registry errors onto wire codes.
func authError(err error) *WireError {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return wireError(CodeRoomNotFound, "room not found")
	case errors.Is(err, game.ErrClientNotFound):
		return wireError(CodeUnauthorized, "no live session for this user in that room")
	case errors.Is(err, game.ErrNotHost):
		return wireError(CodeNotHost, "only the host can do that")
	case errors.Is(err, game.ErrNotEnough):
		return wireError(CodeNotEnough, "need two players to start")
	case errors.Is(err, game.ErrNotInProgress):
		return wireError(CodeNotInProgress, "match is not in progress")
	case errors.Is(err, game.ErrNotYourTurn):
		return wireError(CodeNotYourTurn, "it is not your turn")
	default:
		return wireError(CodeInternal, err.Error())
	}
}
