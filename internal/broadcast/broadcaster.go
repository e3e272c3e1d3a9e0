package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// channel is the Redis pub/sub channel carrying forced-logout events.
const channel = "asset-console:force-logout"

// Broadcaster publishes forced-logout events. With a Redis client the event
// goes through pub/sub so every instance (including this one, via Run)
// delivers it; without Redis it goes straight to the local hub.
type Broadcaster struct {
	rdb  *redis.Client // may be nil
	hub  *Hub
	nowF func() time.Time
}

// NewBroadcaster returns a Broadcaster. rdb may be nil for single-instance
// deployments.
func NewBroadcaster(rdb *redis.Client, hub *Hub) *Broadcaster {
	return &Broadcaster{rdb: rdb, hub: hub, nowF: func() time.Time { return time.Now().UTC() }}
}

// ForceLogout publishes one event. Best-effort: publish failures are logged,
// never returned, since the session row is already deactivated.
func (b *Broadcaster) ForceLogout(ctx context.Context, userID, sessionToken, reason string) {
	e := Event{
		UserID:       userID,
		SessionToken: sessionToken,
		Reason:       reason,
		At:           b.nowF(),
	}
	if b.rdb == nil {
		b.hub.Publish(e)
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("broadcast: marshal event: %v", err)
		return
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("broadcast: redis publish failed: %v", err)
		// Deliver locally anyway so this instance's clients still hear it.
		b.hub.Publish(e)
	}
}

// Run subscribes to the Redis channel and feeds received events into the
// local hub until ctx is cancelled. No-op without a Redis client. Intended to
// be started as a goroutine from the server main.
func (b *Broadcaster) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, channel)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("broadcast: bad event payload: %v", err)
				continue
			}
			b.hub.Publish(e)
		}
	}
}
