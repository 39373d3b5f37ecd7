package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles the append-only proctoring event log. Rows are
// only ever inserted; ordering is by capture time.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Insert appends a single event. Monitor-produced events normally arrive
// through the batch worker; this path serves manual proctor log entries.
func (r *EventRepository) Insert(ctx context.Context, ev *model.IntegrityEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events (exam_id, student_id, kind, message, captured_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.ExamID, ev.StudentID, ev.Kind, ev.Message, ev.CapturedAt)
	return err
}

// List retrieves all events in capture order.
func (r *EventRepository) List(ctx context.Context) ([]model.IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id, kind, message, captured_at
		 FROM proctoring_events
		 ORDER BY captured_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.IntegrityEvent
	for rows.Next() {
		var ev model.IntegrityEvent
		if err := rows.Scan(&ev.ExamID, &ev.StudentID, &ev.Kind, &ev.Message, &ev.CapturedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListBySession retrieves one session's events in capture order.
func (r *EventRepository) ListBySession(ctx context.Context, examID uuid.UUID, studentID string) ([]model.IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id, kind, message, captured_at
		 FROM proctoring_events
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY captured_at ASC, id ASC`, examID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.IntegrityEvent
	for rows.Next() {
		var ev model.IntegrityEvent
		if err := rows.Scan(&ev.ExamID, &ev.StudentID, &ev.Kind, &ev.Message, &ev.CapturedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
