// Package worker runs background jobs: session stats aggregation and clip
// ingest from provider recordings.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frameline/meetups-backend/internal/clips"
	"github.com/frameline/meetups-backend/internal/models"
	"github.com/frameline/meetups-backend/internal/photoevents"
	"github.com/frameline/meetups-backend/internal/sessions"
	"github.com/frameline/meetups-backend/pkg/queue"
	"github.com/frameline/meetups-backend/pkg/storage"
)

// Processor executes worker jobs dequeued from Redis.
type Processor struct {
	eventRepo   *photoevents.Repository
	sessionRepo *sessions.Repository
	statsRepo   *sessions.StatsRepository
	clipRepo    *clips.Repository
	s3          *storage.S3
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewProcessor creates a job processor. s3 may be nil; ingested clips then
// keep the provider URL instead of being copied into object storage.
func NewProcessor(eventRepo *photoevents.Repository, sessionRepo *sessions.Repository, statsRepo *sessions.StatsRepository, clipRepo *clips.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		eventRepo:   eventRepo,
		sessionRepo: sessionRepo,
		statsRepo:   statsRepo,
		clipRepo:    clipRepo,
		s3:          s3,
		queue:       q,
		logger:      logger,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSessionStats:
		return p.processSessionStats(ctx, job)
	case queue.JobTypeClipIngest:
		return p.processClipIngest(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processSessionStats(ctx context.Context, job *queue.Job) error {
	var payload queue.SessionStatsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	st, err := p.eventRepo.StatsFor(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("aggregate session %s: %w", payload.SessionID, err)
	}
	st.MeetupID = payload.MeetupID
	if err := p.statsRepo.Upsert(ctx, st); err != nil {
		return fmt.Errorf("store stats: %w", err)
	}

	p.logger.Info("session stats computed",
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("event_count", st.EventCount),
		zap.Int("distinct_navigators", st.DistinctNavigators))
	return nil
}

func (p *Processor) processClipIngest(ctx context.Context, job *queue.Job) error {
	var payload queue.ClipIngestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	photoID := payload.PhotoID
	if photoID == "" {
		// Recording webhooks do not know which photo was on screen; pin the
		// clip to the last photo navigated to in the latest session.
		resolved, err := p.lastPhotoFor(ctx, payload.MeetupID)
		if err != nil {
			return err
		}
		photoID = resolved
	}

	clip := &models.Clip{
		ID:              uuid.New(),
		PhotoID:         photoID,
		MeetupID:        payload.MeetupID,
		ClipURL:         payload.FileURL,
		DurationSeconds: payload.DurationSeconds,
		RecordedAt:      time.Now(),
	}

	if p.s3 != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.FileURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download status: %d", resp.StatusCode)
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "video/mp4"
		}
		key := storage.ClipKey(payload.MeetupID, clip.ID.String())
		s3URL, err := p.s3.Upload(ctx, p.s3.ClipsBucket(), key, contentType, resp.Body, resp.ContentLength)
		if err != nil {
			return fmt.Errorf("s3 upload: %w", err)
		}
		clip.ObjectKey = key
		clip.ClipURL = s3URL
	}

	if err := p.clipRepo.Create(ctx, clip); err != nil {
		return fmt.Errorf("store clip: %w", err)
	}

	p.logger.Info("clip ingested",
		zap.String("clip_id", clip.ID.String()),
		zap.String("meetup_id", payload.MeetupID),
		zap.String("photo_id", photoID))
	return nil
}

func (p *Processor) lastPhotoFor(ctx context.Context, meetupID string) (string, error) {
	sess, err := p.sessionRepo.LatestFor(ctx, meetupID)
	if err != nil {
		return "", fmt.Errorf("latest session: %w", err)
	}
	if sess == nil {
		return "", fmt.Errorf("no session for meetup %s", meetupID)
	}
	events, err := p.eventRepo.EventsFor(ctx, sess.ID)
	if err != nil {
		return "", fmt.Errorf("events: %w", err)
	}
	if len(events) == 0 {
		return "", fmt.Errorf("empty event log for session %s", sess.ID)
	}
	return events[len(events)-1].PhotoID, nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, key); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
