package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueSessionStats is the Redis list key for session stats aggregation jobs.
	QueueSessionStats = "worker:session_stats"
	// QueueClipIngest is the Redis list key for clip ingest jobs.
	QueueClipIngest = "worker:clip_ingest"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeSessionStats JobType = "session_stats"
	JobTypeClipIngest   JobType = "clip_ingest"
)

// SessionStatsPayload is the payload for session stats aggregation jobs.
type SessionStatsPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	MeetupID  string    `json:"meetup_id"`
}

// ClipIngestPayload is the payload for clip ingest jobs: download the
// provider recording and store it as a clip asset.
type ClipIngestPayload struct {
	MeetupID        string `json:"meetup_id"`
	PhotoID         string `json:"photo_id"`
	FileURL         string `json:"file_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueSessionStats enqueues a session stats aggregation job.
func (q *Queue) EnqueueSessionStats(ctx context.Context, payload SessionStatsPayload) error {
	job, raw, err := newJob(JobTypeSessionStats, payload)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueSessionStats, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued session stats job", zap.String("job_id", job.ID), zap.String("session_id", payload.SessionID.String()))
	return nil
}

// EnqueueClipIngest enqueues a clip ingest job.
func (q *Queue) EnqueueClipIngest(ctx context.Context, payload ClipIngestPayload) error {
	job, raw, err := newJob(JobTypeClipIngest, payload)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueClipIngest, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued clip ingest job", zap.String("job_id", job.ID), zap.String("meetup_id", payload.MeetupID))
	return nil
}

func newJob(t JobType, payload interface{}) (*Job, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job: %w", err)
	}
	return job, raw, nil
}

// Dequeue blocks until a job is available on any worker queue or ctx is done.
// Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueSessionStats, QueueClipIngest).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, key string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if key == "" {
		key = QueueSessionStats
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
