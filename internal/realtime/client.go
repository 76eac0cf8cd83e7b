package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/meetups"
	"github.com/frameline/meetups-backend/internal/photosync"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in a meetup. Each client
// owns a sync coordinator that tracks its displayed photo index and gates
// inbound navigation deliveries.
type Client struct {
	ID       string
	MeetupID string
	UserID   string
	Role     string
	JoinedAt time.Time
	coord    *photosync.Coordinator
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error), meetupRepo *meetups.Repository, eventLog photosync.EventLog, sessions photosync.SessionFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetupID := c.Query("meetup_id")
		token := c.Query("token")
		if meetupID == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "meetup_id and token required"})
			return
		}
		userID, role, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		meetup, err := meetupRepo.GetOrCreate(c.Request.Context(), meetupID)
		if err != nil {
			logger.Error("ws meetup lookup failed", zap.Error(err), zap.String("meetup_id", meetupID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meetup"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			MeetupID: meetupID,
			UserID:   userID,
			Role:     role,
			JoinedAt: time.Now(),
			coord:    photosync.NewCoordinator(userID, meetupID, meetup.PhotoCount, eventLog, sessions, hub, logger),
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// deliver routes a hub broadcast to this client. Navigation events pass
// through the coordinator first: own echoes and malformed payloads are
// dropped, valid ones update the tracked index before hitting the socket.
func (c *Client) deliver(msg WSMessage) {
	if msg.Event == photosync.EventNavigatePhoto {
		sync, err := photosync.ParseSyncMessage(msg.Data)
		if err != nil {
			c.logger.Debug("dropping undecodable navigation",
				zap.String("meetup_id", c.MeetupID), zap.Error(err))
			return
		}
		if !c.coord.OnRemoteNavigation(sync) {
			return
		}
	}
	c.enqueue(msg)
}

func (c *Client) enqueue(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		// buffer full, skip
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.coord.Wait()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.handleJoin()
		case photosync.EventNavigatePhoto:
			c.handleNavigate(msg.Data)
		default:
			// ignore
		}
	}
}

// handleJoin reconciles against the durable log and reports the agreed
// state back to this client, then announces the participant to the room.
func (c *Client) handleJoin() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	idx, err := c.coord.ReconcileOnJoin(ctx, c.MeetupID)
	cancel()
	if err != nil {
		c.logger.Warn("join reconcile failed",
			zap.String("meetup_id", c.MeetupID),
			zap.String("user_id", c.UserID),
			zap.Error(err))
	}
	c.hub.SendToClient(c.MeetupID, c.ID, "sync_state", map[string]interface{}{
		"current_photo_index": idx,
		"degraded":            err != nil,
	})
	c.hub.Publish(c.MeetupID, "participant_joined", map[string]interface{}{
		"user_id": c.UserID,
		"role":    c.Role,
		"count":   c.hub.ParticipantCount(c.MeetupID),
	})
}

// handleNavigate applies a local navigation from this client's socket. The
// navigator id is always this connection's user, whatever the payload says.
func (c *Client) handleNavigate(data json.RawMessage) {
	msg, err := photosync.ParseSyncMessage(data)
	if err != nil {
		c.hub.SendToClient(c.MeetupID, c.ID, "error", map[string]string{"message": err.Error()})
		return
	}
	if err := c.coord.NavigateTo(msg.PhotoID, msg.PhotoIndex); err != nil {
		var verr *photosync.ValidationError
		switch {
		case errors.As(err, &verr):
			c.hub.SendToClient(c.MeetupID, c.ID, "error", map[string]string{"message": verr.Error()})
		case errors.Is(err, photosync.ErrNoActiveSession):
			c.hub.SendToClient(c.MeetupID, c.ID, "error", map[string]string{"message": "no active session; start one and rejoin"})
		default:
			c.logger.Warn("navigation failed", zap.String("meetup_id", c.MeetupID), zap.Error(err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
