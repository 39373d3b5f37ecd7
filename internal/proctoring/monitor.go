package proctoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/model"
)

// Monitor samples frames from a source at a fixed cadence and runs each
// one through the presence detector and (when configured) the anomaly
// classifier, emitting integrity events to the sink as they occur.
type Monitor struct {
	source   FrameSource
	presence Detector
	anomaly  Detector // may be nil
	sink     EventSink

	interval  time.Duration
	threshold float64
}

// NewMonitor wires a monitoring pipeline. anomaly may be nil, in which
// case only presence checks run.
func NewMonitor(source FrameSource, presence, anomaly Detector, sink EventSink, interval time.Duration, threshold float64) *Monitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Monitor{
		source:    source,
		presence:  presence,
		anomaly:   anomaly,
		sink:      sink,
		interval:  interval,
		threshold: threshold,
	}
}

// Run consumes the frame source until exhaustion or context cancel and
// returns the events it emitted, in capture order. A detector that
// fails on a frame is skipped for that frame; a sink failure aborts the
// run since events would otherwise be lost.
func (m *Monitor) Run(ctx context.Context, examID uuid.UUID, studentID string) ([]model.IntegrityEvent, error) {
	defer m.source.Close()

	var events []model.IntegrityEvent

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case <-ticker.C:
		}

		frame, err := m.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("read frame: %w", err)
		}

		for _, event := range m.inspect(frame, examID, studentID) {
			if err := m.sink.Append(ctx, event); err != nil {
				return events, fmt.Errorf("append integrity event: %w", err)
			}
			events = append(events, event)
		}
	}
}

// inspect runs both detectors on one frame. The anomaly classifier runs
// on every frame it is configured for, including face-absent ones, so a
// single frame can yield two events.
func (m *Monitor) inspect(frame *Frame, examID uuid.UUID, studentID string) []model.IntegrityEvent {
	var out []model.IntegrityEvent

	present, err := m.presence.Classify(frame)
	if err != nil {
		log.Warn().Err(err).Int("frame", frame.Index).Msg("presence check failed, skipping frame")
	} else if present == 0 {
		out = append(out, model.IntegrityEvent{
			ExamID:     examID,
			StudentID:  studentID,
			Kind:       model.EventFaceAbsent,
			Message:    "Face not detected",
			CapturedAt: frame.CapturedAt,
		})
	}

	if m.anomaly == nil {
		return out
	}

	score, err := m.anomaly.Classify(frame)
	if err != nil {
		log.Warn().Err(err).Int("frame", frame.Index).Msg("anomaly check failed, skipping frame")
		return out
	}
	if score > m.threshold {
		out = append(out, model.IntegrityEvent{
			ExamID:     examID,
			StudentID:  studentID,
			Kind:       model.EventAnomalyDetected,
			Message:    fmt.Sprintf("Cheating detected (score %.2f)", score),
			CapturedAt: frame.CapturedAt,
		})
	}

	return out
}
