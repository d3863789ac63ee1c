package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-autograder/internal/grading"
)

// GradingEventType identifies events emitted after a grading run.
const GradingEventType = "grading.completed"

// GradingEvent is broadcast once a submission has been graded and stored.
type GradingEvent struct {
	Type         string    `json:"type"`
	Source       string    `json:"source"`
	RunID        string    `json:"run_id"`
	SubmissionID uint      `json:"submission_id"`
	ActivityID   uint      `json:"activity_id"`
	StudentID    uint      `json:"student_id"`
	State        string    `json:"state"`
	TotalScore   int       `json:"total_score"`
	Flagged      bool      `json:"similarity_flagged"`
	GradedAt     time.Time `json:"graded_at"`
}

// NewGradingEvent summarises a result for subscribers.
func NewGradingEvent(sub grading.Submission, result grading.Result, gradedAt time.Time) GradingEvent {
	return GradingEvent{
		Type:         GradingEventType,
		RunID:        result.RunID,
		SubmissionID: sub.ID,
		ActivityID:   sub.ActivityID,
		StudentID:    sub.StudentID,
		State:        string(result.State),
		TotalScore:   result.TotalScore,
		Flagged:      result.Similarity.Flagged,
		GradedAt:     gradedAt.UTC(),
	}
}

// EventPublisher fans grading events out to downstream consumers.
type EventPublisher interface {
	PublishGradingCompleted(ctx context.Context, event GradingEvent) error
}

type gradingEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewGradingEventPublisher publishes to Redis pub/sub and NATS. Either transport may be nil.
func NewGradingEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grading"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grading"
	}

	return &gradingEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "grading_events").Logger(),
	}
}

func (p *gradingEventPublisher) PublishGradingCompleted(ctx context.Context, event GradingEvent) error {
	event.Source = p.nodeID
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("run_id", event.RunID).Uint("submission_id", event.SubmissionID).Msg("grading event published")
	return nil
}
