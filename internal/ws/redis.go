package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// bridgeChannel carries room broadcasts between relay instances.
const bridgeChannel = "room-events"

// Bridge republishes room broadcasts over Redis pub/sub so every relay
// instance can fan out to its own local sockets. Rooms themselves stay
// in process memory; only the event stream crosses instances. Without a
// configured Redis the relay runs single-instance and the bridge is
// simply absent.
type Bridge struct {
	rdb        *redis.Client
	instanceID string
}

type bridgeFrame struct {
	Instance string          `json:"instance"`
	RoomID   string          `json:"roomId"`
	Envelope json.RawMessage `json:"envelope"`
}

func NewBridge(rdb *redis.Client) *Bridge {
	return &Bridge{
		rdb:        rdb,
		instanceID: uuid.NewString(),
	}
}

// Publish pushes a pre-marshaled envelope to the channel. Best-effort:
// a pub/sub failure must not fail the local broadcast.
func (b *Bridge) Publish(roomID string, envelope []byte) {
	frame, err := json.Marshal(bridgeFrame{
		Instance: b.instanceID,
		RoomID:   roomID,
		Envelope: envelope,
	})
	if err != nil {
		return
	}
	if err := b.rdb.Publish(context.Background(), bridgeChannel, frame).Err(); err != nil {
		log.Printf("[WS] bridge publish failed: %v", err)
	}
}

// Run subscribes and re-delivers foreign-instance frames to the local
// room members until ctx is done.
func (b *Bridge) Run(ctx context.Context, relay *Relay) {
	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()
	log.Printf("[WS] bridge subscriber started (instance=%s)", b.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[WS] bridge subscriber stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.Printf("[WS] invalid bridge frame: %v", err)
				continue
			}
			if frame.Instance == b.instanceID {
				continue // our own broadcast, already delivered locally
			}
			relay.deliverLocal(frame.RoomID, frame.Envelope)
		}
	}
}
