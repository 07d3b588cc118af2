package ws

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Hosfad/pooljs-remastered-sub000/internal/config"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/game"
)

const readTimeout = 3 * time.Second

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "test", MaxActivePlayers: 2}
	registry := game.NewRegistry(cfg.MaxActivePlayers)
	relay := NewRelay(registry, cfg)

	router := gin.New()
	router.GET("/ws", relay.HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	if err := conn.WriteJSON(Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("send %s: %v", event, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

// readUntil drains frames until one arrives under the wanted event key.
func readUntil(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()
	for {
		env := readEnvelope(t, conn)
		if env.Event == event {
			return env
		}
	}
}

func decodeData(t *testing.T, env Envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode %s data: %v", env.Event, err)
	}
}

type joinAck struct {
	Type string            `json:"type"`
	Data game.RoomSnapshot `json:"data"`
}

// joinRoom performs the create/join handshake and returns the acked
// snapshot.
func joinRoom(t *testing.T, conn *websocket.Conn, event, roomID, userID string) game.RoomSnapshot {
	t.Helper()
	sendEvent(t, conn, event, map[string]string{
		"userId": userID,
		"name":   userID,
		"roomId": roomID,
	})
	env := readUntil(t, conn, EventJoinRoomResponse)
	var ack joinAck
	decodeData(t, env, &ack)
	if ack.Type != "success" {
		t.Fatalf("join ack for %s: %s", userID, env.Data)
	}
	return ack.Data
}

// twoPlayerRoom wires up the standard scenario: A creates r1 and hosts,
// B joins. Both connections are drained up to the point where each has
// seen the two-member roster.
func twoPlayerRoom(t *testing.T, srv *httptest.Server) (connA, connB *websocket.Conn) {
	t.Helper()
	connA = dial(t, srv)
	connB = dial(t, srv)

	joinRoom(t, connA, EventCreateRoom, "r1", "A")
	var loading showLoadingPayload
	decodeData(t, readUntil(t, connA, EventShowLoading), &loading)
	if !loading.Show {
		t.Fatal("lone host not told to wait")
	}

	joinRoom(t, connB, EventJoinRoom, "r1", "B")

	for _, conn := range []*websocket.Conn{connA, connB} {
		var snap game.RoomSnapshot
		decodeData(t, readUntil(t, conn, EventUpdateRoom), &snap)
		for len(snap.Players) < 2 {
			decodeData(t, readUntil(t, conn, EventUpdateRoom), &snap)
		}
		if snap.HostID != "A" {
			t.Fatalf("host = %q, want A", snap.HostID)
		}
		decodeData(t, readUntil(t, conn, EventShowLoading), &loading)
		if loading.Show {
			t.Fatal("loading overlay not cleared once both players are in")
		}
	}
	return connA, connB
}

func startMatch(t *testing.T, connA, connB *websocket.Conn) game.RoomSnapshot {
	t.Helper()
	sendEvent(t, connA, EventGameStart, map[string]string{"userId": "A", "roomId": "r1"})

	var init game.RoomSnapshot
	decodeData(t, readUntil(t, connB, EventGameInit), &init)
	decodeData(t, readUntil(t, connA, EventGameInit), &init)
	return init
}

func TestJoinAcksAndBroadcastsRoster(t *testing.T) {
	srv := newTestServer(t)
	connA := dial(t, srv)

	snap := joinRoom(t, connA, EventCreateRoom, "r1", "A")
	if snap.ID != "r1" || snap.HostID != "A" || snap.Phase != game.PhaseWaiting {
		t.Errorf("join ack snapshot = %+v", snap)
	}
	twoPlayerRoom(t, newTestServer(t))
}

func TestGameStartBroadcastsInit(t *testing.T) {
	srv := newTestServer(t)
	connA, connB := twoPlayerRoom(t, srv)

	init := startMatch(t, connA, connB)
	if init.Phase != game.PhaseInProgress {
		t.Errorf("phase = %q", init.Phase)
	}
	if len(init.Balls) != game.NumBalls {
		t.Errorf("init has %d balls", len(init.Balls))
	}
	if init.CurrentRound == nil || init.CurrentRound.Round != 1 || init.CurrentRound.UserID != "A" {
		t.Errorf("first round = %+v", init.CurrentRound)
	}
}

func TestGameStartIsHostOnly(t *testing.T) {
	srv := newTestServer(t)
	_, connB := twoPlayerRoom(t, srv)

	sendEvent(t, connB, EventGameStart, map[string]string{"userId": "B", "roomId": "r1"})
	var werr WireError
	decodeData(t, readUntil(t, connB, EventGameStart), &werr)
	if werr.Type != "error" || werr.Code != CodeNotHost {
		t.Errorf("reply = %+v, want not-host error", werr)
	}
}

func TestUnknownRoomIsRejected(t *testing.T) {
	srv := newTestServer(t)
	connA, _ := twoPlayerRoom(t, srv)

	sendEvent(t, connA, EventGameStart, map[string]string{"userId": "A", "roomId": "nope"})
	var werr WireError
	decodeData(t, readUntil(t, connA, EventGameStart), &werr)
	if werr.Code != CodeRoomNotFound {
		t.Errorf("reply = %+v, want room-not-found", werr)
	}
}

// The core sync property: the peer replaying the relayed trajectory
// lands on exactly the ball positions the author computed.
func TestHitRelaysTrajectoryVerbatim(t *testing.T) {
	srv := newTestServer(t)
	connA, connB := twoPlayerRoom(t, srv)
	startMatch(t, connA, connB)

	// A simulates the break locally, the way a real client would.
	engine := game.NewEngine(game.NewStandardTable())
	balls := game.StandardRack()
	traj, err := engine.Simulate(balls, game.Strike{Power: 0.5, Angle: 0})
	if err != nil {
		t.Fatal(err)
	}
	state := game.NewPoolState()
	state.ApplyPocketed(balls)

	sendEvent(t, connA, EventHit, game.HitReport{
		UserID: "A", RoomID: "r1",
		KeyPositions: traj,
		State:        state,
		Balls:        balls,
	})

	for _, conn := range []*websocket.Conn{connA, connB} {
		var got game.HitReport
		decodeData(t, readUntil(t, conn, EventHit), &got)

		if len(got.KeyPositions) == 0 || len(got.KeyPositions) > game.MaxSteps {
			t.Fatalf("relayed trajectory has %d frames", len(got.KeyPositions))
		}
		last := got.KeyPositions[len(got.KeyPositions)-1]
		if len(last) != len(balls) {
			t.Fatalf("final frame has %d snapshots, want %d", len(last), len(balls))
		}
		for i := range last {
			if last[i].Position != balls[i].Position {
				t.Errorf("ball %d diverged: relayed %+v, authored %+v",
					balls[i].ID, last[i].Position, balls[i].Position)
			}
		}
	}

	// The turn passes to B on the broadcast that follows.
	var snap game.RoomSnapshot
	decodeData(t, readUntil(t, connB, EventUpdateRoom), &snap)
	if snap.CurrentRound == nil || snap.CurrentRound.UserID != "B" || snap.CurrentRound.Round != 2 {
		t.Errorf("post-hit round = %+v", snap.CurrentRound)
	}
}

func TestHitOutOfTurnIsRejected(t *testing.T) {
	srv := newTestServer(t)
	connA, connB := twoPlayerRoom(t, srv)
	startMatch(t, connA, connB)

	sendEvent(t, connB, EventHit, game.HitReport{UserID: "B", RoomID: "r1"})
	var werr WireError
	decodeData(t, readUntil(t, connB, EventHit), &werr)
	if werr.Code != CodeNotYourTurn {
		t.Errorf("reply = %+v, want not-your-turn", werr)
	}
}

func TestPullIsPassedThroughToEveryone(t *testing.T) {
	srv := newTestServer(t)
	connA, connB := twoPlayerRoom(t, srv)

	// Before the match starts, pull is rejected.
	sendEvent(t, connA, EventPull, map[string]interface{}{"userId": "A", "roomId": "r1", "angle": 1.23})
	var werr WireError
	decodeData(t, readUntil(t, connA, EventPull), &werr)
	if werr.Code != CodeNotInProgress {
		t.Errorf("pre-start pull reply = %+v", werr)
	}

	startMatch(t, connA, connB)

	sendEvent(t, connA, EventPull, map[string]interface{}{"userId": "A", "roomId": "r1", "angle": 1.23, "power": 0.4})
	for _, conn := range []*websocket.Conn{connA, connB} {
		var preview struct {
			UserID string  `json:"userId"`
			Angle  float64 `json:"angle"`
			Power  float64 `json:"power"`
		}
		decodeData(t, readUntil(t, conn, EventPull), &preview)
		if preview.UserID != "A" || preview.Angle != 1.23 || preview.Power != 0.4 {
			t.Errorf("preview not passed through verbatim: %+v", preview)
		}
	}
}

func TestKickNotifiesAndDisconnectsTarget(t *testing.T) {
	srv := newTestServer(t)
	connA, connB := twoPlayerRoom(t, srv)

	sendEvent(t, connA, EventKickPlayer, map[string]string{
		"userId": "A", "roomId": "r1", "kickTargetId": "B",
	})

	var modal showErrorModalPayload
	decodeData(t, readUntil(t, connB, EventShowErrorModal), &modal)
	if modal.Title == "" || modal.CloseAfter == 0 {
		t.Errorf("kick modal = %+v", modal)
	}

	// The kicked socket is closed server-side.
	connB.SetReadDeadline(time.Now().Add(readTimeout))
	for {
		if _, _, err := connB.ReadMessage(); err != nil {
			break
		}
	}

	var snap game.RoomSnapshot
	decodeData(t, readUntil(t, connA, EventUpdateRoom), &snap)
	if len(snap.Players) != 1 || snap.Players[0].ID != "A" {
		t.Errorf("roster after kick = %+v", snap.Players)
	}
}

func TestMatchmakingToggle(t *testing.T) {
	srv := newTestServer(t)
	connA, _ := twoPlayerRoom(t, srv)

	sendEvent(t, connA, EventMatchMakeStart, map[string]string{"userId": "A", "roomId": "r1"})
	env := readUntil(t, connA, responseEvent(EventMatchMakeStart))
	var ack joinAck
	decodeData(t, env, &ack)
	if ack.Type != "success" || !ack.Data.Matchmaking {
		t.Errorf("matchmaking ack = %+v", ack)
	}

	sendEvent(t, connA, EventMatchMakeCancel, map[string]string{"userId": "A", "roomId": "r1"})
	decodeData(t, readUntil(t, connA, responseEvent(EventMatchMakeCancel)), &ack)
	if ack.Type != "success" || ack.Data.Matchmaking {
		t.Errorf("cancel ack = %+v", ack)
	}
}

func TestMalformedFramesAreDroppedWithoutReply(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	// Bad JSON and an unknown event: both are protocol errors the
	// server drops silently. The connection must stay usable.
	conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
	sendEvent(t, conn, "no-such-event", map[string]string{"userId": "A"})

	snap := joinRoom(t, conn, EventCreateRoom, "r2", "A")
	if snap.ID != "r2" {
		t.Errorf("connection unusable after protocol errors: %+v", snap)
	}
}

func TestJoinCarriesEquippedCue(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, EventCreateRoom, map[string]string{
		"userId": "A", "name": "A", "roomId": "r1", "equippedCue": "carbon-pro",
	})
	var ack joinAck
	decodeData(t, readUntil(t, conn, EventJoinRoomResponse), &ack)
	if ack.Type != "success" {
		t.Fatalf("join ack = %+v", ack)
	}
	if ack.Data.Players[0].State.EquippedCue != "carbon-pro" {
		t.Errorf("cue = %q", ack.Data.Players[0].State.EquippedCue)
	}
}

func TestMissingUserIDIsBadPayload(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	sendEvent(t, conn, EventJoinRoom, map[string]string{"roomId": "r1"})
	var werr WireError
	decodeData(t, readUntil(t, conn, EventJoinRoom), &werr)
	if werr.Code != CodeBadPayload {
		t.Errorf("reply = %+v, want bad-payload", werr)
	}
}

func TestAuthErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{game.ErrRoomNotFound, CodeRoomNotFound},
		{game.ErrClientNotFound, CodeUnauthorized},
		{game.ErrNotHost, CodeNotHost},
		{game.ErrNotEnough, CodeNotEnough},
		{game.ErrNotInProgress, CodeNotInProgress},
		{game.ErrNotYourTurn, CodeNotYourTurn},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		if got := authError(tc.err); got.Code != tc.code || got.Type != "error" {
			t.Errorf("authError(%v) = %+v, want code %s", tc.err, got, tc.code)
		}
	}
}
