package hms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/models"
)

// RoomClient provisions rooms over the 100ms management API.
type RoomClient struct {
	baseURL    string
	mgmtToken  string
	templateID string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRoomClient creates a management API client.
func NewRoomClient(baseURL, mgmtToken, templateID string, logger *zap.Logger) *RoomClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomClient{
		baseURL:    baseURL,
		mgmtToken:  mgmtToken,
		templateID: templateID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type createRoomRequest struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	TemplateID    string        `json:"template_id"`
	RecordingInfo recordingInfo `json:"recording_info"`
}

type recordingInfo struct {
	Enabled bool `json:"enabled"`
}

type createRoomResponse struct {
	ID string `json:"id"`
}

// EnsureRoom returns the meetup's room, creating one with recording enabled
// when the meetup has none. Implements meetups.RoomProvisioner.
func (c *RoomClient) EnsureRoom(ctx context.Context, meetup *models.Meetup) (string, error) {
	if meetup.VideoRoomID != nil {
		return *meetup.VideoRoomID, nil
	}

	body, err := json.Marshal(createRoomRequest{
		Name:          "meetup-" + meetup.ID,
		Description:   meetup.Title,
		TemplateID:    c.templateID,
		RecordingInfo: recordingInfo{Enabled: true},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rooms", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.mgmtToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("room creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("meetup_id", meetup.ID),
			zap.ByteString("body", raw))
		return "", fmt.Errorf("create room: provider returned %d", resp.StatusCode)
	}

	var out createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode room response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create room: provider returned empty room id")
	}

	c.logger.Info("room created", zap.String("meetup_id", meetup.ID), zap.String("room_id", out.ID))
	return out.ID, nil
}
