package proctoring

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
)

// sliceSource serves a fixed set of frames, then io.EOF.
type sliceSource struct {
	frames []*Frame
	pos    int
	closed int
}

func (s *sliceSource) Next(_ context.Context) (*Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.closed++
	return nil
}

func makeFrames(n int, build func(i int) *Frame) []*Frame {
	frames := make([]*Frame, n)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := range frames {
		frames[i] = build(i)
		frames[i].Index = i
		frames[i].CapturedAt = base.Add(time.Duration(i) * time.Second)
	}
	return frames
}

func constScore(score float64) Detector {
	return DetectorFunc(func(_ *Frame) (float64, error) { return score, nil })
}

func TestMonitorFacelessFramesProduceOrderedEvents(t *testing.T) {
	source := &sliceSource{frames: makeFrames(10, func(int) *Frame { return uniformFrame(128) })}
	sink := &MemorySink{}
	m := NewMonitor(source, NewPresenceDetector(), nil, sink, time.Millisecond, 0.5)

	examID := uuid.New()
	events, err := m.Run(context.Background(), examID, "STU42")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(events) != 10 {
		t.Fatalf("expected 10 face-absent events, got %d", len(events))
	}
	for i, e := range events {
		if e.Kind != model.EventFaceAbsent {
			t.Fatalf("event %d: expected FACE_ABSENT, got %s", i, e.Kind)
		}
		if i > 0 && e.CapturedAt.Before(events[i-1].CapturedAt) {
			t.Fatalf("events out of capture order at index %d", i)
		}
	}
	if len(sink.Events) != 10 {
		t.Fatalf("sink should see every event, got %d", len(sink.Events))
	}
}

func TestMonitorSingleAnomalyFlagsRun(t *testing.T) {
	frames := makeFrames(5, func(int) *Frame { return texturedFrame() })
	source := &sliceSource{frames: frames}

	var n int
	anomaly := DetectorFunc(func(_ *Frame) (float64, error) {
		n++
		if n == 3 {
			return 0.92, nil
		}
		return 0.1, nil
	})

	sink := &MemorySink{}
	m := NewMonitor(source, NewPresenceDetector(), anomaly, sink, time.Millisecond, 0.5)

	examID := uuid.New()
	events, err := m.Run(context.Background(), examID, "STU7")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 anomaly event, got %d", len(events))
	}
	if events[0].Kind != model.EventAnomalyDetected {
		t.Fatalf("expected ANOMALY_DETECTED, got %s", events[0].Kind)
	}

	verdict := Aggregate(examID, "STU7", events)
	if !verdict.Detected {
		t.Fatal("single anomaly event must flag the run")
	}
	if len(verdict.Contributing) != 1 {
		t.Fatalf("expected 1 contributing event, got %d", len(verdict.Contributing))
	}
}

func TestMonitorClassifierRunsOnFacelessFrames(t *testing.T) {
	// A student leaving the camera's view must not suppress anomaly
	// detection: the classifier scores every frame it is configured for.
	source := &sliceSource{frames: makeFrames(3, func(int) *Frame { return uniformFrame(128) })}
	sink := &MemorySink{}
	m := NewMonitor(source, NewPresenceDetector(), constScore(0.9), sink, time.Millisecond, 0.5)

	examID := uuid.New()
	events, err := m.Run(context.Background(), examID, "STU3")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(events) != 6 {
		t.Fatalf("expected 2 events per frame, got %d", len(events))
	}
	for i, e := range events {
		want := model.EventFaceAbsent
		if i%2 == 1 {
			want = model.EventAnomalyDetected
		}
		if e.Kind != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, e.Kind)
		}
	}

	verdict := Aggregate(examID, "STU3", events)
	if !verdict.Detected {
		t.Fatal("anomalies on faceless frames must flag the run")
	}
	if len(verdict.Contributing) != 3 {
		t.Fatalf("expected 3 contributing events, got %d", len(verdict.Contributing))
	}
}

func TestMonitorScoreAtThresholdNotFlagged(t *testing.T) {
	source := &sliceSource{frames: makeFrames(3, func(int) *Frame { return texturedFrame() })}
	m := NewMonitor(source, NewPresenceDetector(), constScore(0.5), &MemorySink{}, time.Millisecond, 0.5)

	events, err := m.Run(context.Background(), uuid.New(), "STU1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("score equal to threshold must not trip, got %d events", len(events))
	}
}

func TestMonitorClosesSourceOnce(t *testing.T) {
	source := &sliceSource{frames: makeFrames(2, func(int) *Frame { return texturedFrame() })}
	m := NewMonitor(source, NewPresenceDetector(), nil, &MemorySink{}, time.Millisecond, 0.5)

	if _, err := m.Run(context.Background(), uuid.New(), "STU1"); err != nil {
		t.Fatal(err)
	}
	if source.closed != 1 {
		t.Fatalf("expected exactly one close, got %d", source.closed)
	}
}

func TestMonitorSkipsFramesOnDetectorError(t *testing.T) {
	source := &sliceSource{frames: makeFrames(4, func(int) *Frame { return uniformFrame(128) })}

	var n int
	presence := DetectorFunc(func(f *Frame) (float64, error) {
		n++
		if n == 2 {
			return 0, errors.New("decode glitch")
		}
		return 0, nil
	})

	m := NewMonitor(source, presence, nil, &MemorySink{}, time.Millisecond, 0.5)
	events, err := m.Run(context.Background(), uuid.New(), "STU1")
	if err != nil {
		t.Fatalf("detector error must not abort the run: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events with one frame skipped, got %d", len(events))
	}
}

func TestMonitorSinkErrorAborts(t *testing.T) {
	source := &sliceSource{frames: makeFrames(5, func(int) *Frame { return uniformFrame(128) })}
	sink := &failingSink{failAt: 1}
	m := NewMonitor(source, NewPresenceDetector(), nil, sink, time.Millisecond, 0.5)

	if _, err := m.Run(context.Background(), uuid.New(), "STU1"); err == nil {
		t.Fatal("expected run to abort on sink failure")
	}
	if source.closed != 1 {
		t.Fatal("source must be closed even on abort")
	}
}

type failingSink struct {
	calls  int
	failAt int
}

func (s *failingSink) Append(_ context.Context, _ model.IntegrityEvent) error {
	s.calls++
	if s.calls >= s.failAt {
		return errors.New("queue unavailable")
	}
	return nil
}

func TestMonitorStopsOnCancel(t *testing.T) {
	// Unbounded source: cancellation is the only way out.
	source := &endlessSource{}
	m := NewMonitor(source, NewPresenceDetector(), nil, &MemorySink{}, time.Millisecond, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Run(ctx, uuid.New(), "STU1")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}

type endlessSource struct{}

func (s *endlessSource) Next(_ context.Context) (*Frame, error) { return texturedFrame(), nil }
func (s *endlessSource) Close() error                           { return nil }

func TestRegistryRejectsDuplicateRun(t *testing.T) {
	reg := NewRegistry()
	_, release, err := reg.Begin(context.Background(), "exam-1", "STU1")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, _, err := reg.Begin(context.Background(), "exam-1", "STU1"); !errors.Is(err, ErrMonitorRunning) {
		t.Fatalf("expected ErrMonitorRunning, got %v", err)
	}

	// Different session is fine.
	_, release2, err := reg.Begin(context.Background(), "exam-1", "STU2")
	if err != nil {
		t.Fatalf("distinct session should start: %v", err)
	}
	release2()
}

func TestRegistryStopCancelsContext(t *testing.T) {
	reg := NewRegistry()
	ctx, _, err := reg.Begin(context.Background(), "exam-1", "STU1")
	if err != nil {
		t.Fatal(err)
	}

	if !reg.Stop("exam-1", "STU1") {
		t.Fatal("expected Stop to find the run")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by Stop")
	}

	if reg.Stop("exam-1", "STU1") {
		t.Fatal("second Stop should report no run")
	}
}

func TestRegistryReleaseAllowsRestart(t *testing.T) {
	reg := NewRegistry()
	_, release, err := reg.Begin(context.Background(), "exam-1", "STU1")
	if err != nil {
		t.Fatal(err)
	}
	release()

	if _, release2, err := reg.Begin(context.Background(), "exam-1", "STU1"); err != nil {
		t.Fatalf("restart after release should succeed: %v", err)
	} else {
		release2()
	}
}
