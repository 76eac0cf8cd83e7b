package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/photosync"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// RedisPublisher publishes meetup events for cross-instance broadcast.
type RedisPublisher interface {
	PublishMeetupEvent(meetupID, event string, payload []byte) error
}

// RedisSubscriber subscribes to meetup channels and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeMeetup(meetupID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains meetup_id -> set of connections and fans out messages.
// Navigation events route through publish-then-subscribe so each instance
// broadcasts exactly once; every delivery passes each client's sync gate
// before it is written to the socket.
type Hub struct {
	// meetupID -> map[clientID]*Client
	meetups  map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per meetup
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		meetups:  make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a meetup room. Starts the Redis subscription for
// this meetup if it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.meetups[c.MeetupID] == nil {
		h.meetups[c.MeetupID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeMeetup(c.MeetupID, func(event string, payload []byte) {
				h.BroadcastToMeetup(c.MeetupID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.MeetupID] = cancel
			} else {
				h.logger.Warn("meetup subscription failed", zap.String("meetup_id", c.MeetupID), zap.Error(err))
			}
		}
	}
	h.meetups[c.MeetupID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined meetup", zap.String("client_id", c.ID), zap.String("meetup_id", c.MeetupID))
}

// Unregister removes a client from a meetup room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.meetups[c.MeetupID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.meetups, c.MeetupID)
			if cancel, ok := h.subs[c.MeetupID]; ok {
				cancel()
				delete(h.subs, c.MeetupID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left meetup", zap.String("client_id", c.ID), zap.String("meetup_id", c.MeetupID))
}

// BroadcastToMeetup sends a message to all local clients in a meetup. Each
// client's deliver gate decides whether the message reaches its socket.
func (h *Hub) BroadcastToMeetup(meetupID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}

	h.mu.RLock()
	clients := h.meetups[meetupID]
	targets := make([]*Client, 0, len(clients))
	for _, c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.deliver(WSMessage{Event: event, Data: data})
	}
}

// Publish sends an event to every participant of a meetup across all
// instances. When Redis is available the event is published only; the
// subscriber callback performs the one local broadcast, avoiding duplicate
// delivery. Implements the broadcaster used by the sync coordinator.
func (h *Hub) Publish(meetupID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishMeetupEvent(meetupID, event, data); err == nil {
			return
		}
		h.logger.Warn("redis publish failed, falling back to local broadcast",
			zap.String("meetup_id", meetupID), zap.String("event", event))
	}
	h.BroadcastToMeetup(meetupID, event, json.RawMessage(data))
}

// SendToClient sends a message to a single client, bypassing the sync gate.
func (h *Hub) SendToClient(meetupID, clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.meetups[meetupID][clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	c.enqueue(WSMessage{Event: event, Data: data})
}

// ParticipantCount returns the number of connected clients in a meetup.
func (h *Hub) ParticipantCount(meetupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meetups[meetupID])
}

var _ photosync.Broadcaster = (*Hub)(nil)
