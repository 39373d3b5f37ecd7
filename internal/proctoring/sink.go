package proctoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
)

// EventSink receives integrity events as the monitor emits them.
type EventSink interface {
	Append(ctx context.Context, event model.IntegrityEvent) error
}

// EventPublisher fans an event out to live watchers without queueing it
// for persistence. Used for events that are stored through another path.
type EventPublisher interface {
	Publish(ctx context.Context, event model.IntegrityEvent) error
}

// RedisSink pushes events onto the persistence queue consumed by the
// event worker, and publishes them on the per-session channel for live
// proctor dashboards.
type RedisSink struct {
	rdb *redis.Client
}

func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb}
}

func (s *RedisSink) Append(ctx context.Context, event model.IntegrityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal integrity event: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistEventsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue integrity event: %w", err)
	}

	// Live publish is best effort; the queue is the source of truth.
	if err := s.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish integrity event")
	}

	return nil
}

// Publish sends an event on the session's live channel only.
func (s *RedisSink) Publish(ctx context.Context, event model.IntegrityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal integrity event: %w", err)
	}
	channel := config.CacheKey.ProctoringChannel(event.ExamID.String(), event.StudentID)
	return s.rdb.Publish(ctx, channel, payload).Err()
}

// MemorySink collects events in memory.
type MemorySink struct {
	Events    []model.IntegrityEvent
	Published []model.IntegrityEvent
}

func (s *MemorySink) Append(_ context.Context, event model.IntegrityEvent) error {
	s.Events = append(s.Events, event)
	return nil
}

func (s *MemorySink) Publish(_ context.Context, event model.IntegrityEvent) error {
	s.Published = append(s.Published, event)
	return nil
}
