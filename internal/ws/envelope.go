package ws

import "encoding/json"

// Canonical event keys. Every frame on the wire is a UTF-8 JSON
// Envelope keyed by one of these.
const (
	EventCreateRoom      = "create-room"
	EventJoinRoom        = "join-room"
	EventGameStart       = "game-start"
	EventGameInit        = "game-init"
	EventMatchMakeStart  = "match-make-start"
	EventMatchMakeCancel = "match-make-cancel"
	EventKickPlayer      = "kick-player"
	EventPull            = "pull"
	EventHit             = "hit"
	EventUpdateRoom      = "update-room"
	EventShowErrorModal  = "show-error-modal"
	EventShowLoading     = "show-loading"

	// Join acks go out under their own key regardless of whether the
	// client said create-room or join-room.
	EventJoinRoomResponse = "join-room-response"
)

// responseEvent is the ack key for request/response style events.
func responseEvent(event string) string {
	return event + "-response"
}

// Envelope is the frame for both directions of traffic.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WireError is an error reply payload. It goes back to the offending
// socket only; the request is never broadcast.
type WireError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes surfaced to clients.
const (
	CodeBadPayload    = "bad-payload"
	CodeRoomNotFound  = "room-not-found"
	CodeUnauthorized  = "unauthorized"
	CodeNotHost       = "not-host"
	CodeNotEnough     = "not-enough-players"
	CodeNotInProgress = "not-in-progress"
	CodeNotYourTurn   = "not-your-turn"
	CodeInternal      = "internal"
)

func wireError(code, message string) *WireError {
	return &WireError{Type: "error", Code: code, Message: message}
}

// successReply wraps an ack payload.
type successReply struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func success(data interface{}) successReply {
	return successReply{Type: "success", Data: data}
}

// showLoadingPayload and showErrorModalPayload are the UI-only
// server-to-client signals.
type showLoadingPayload struct {
	Show    bool   `json:"show"`
	Message string `json:"message,omitempty"`
}

type showErrorModalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CloseAfter  int    `json:"closeAfter,omitempty"`
}

// marshalEnvelope builds the raw frame for one event+payload.
func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
