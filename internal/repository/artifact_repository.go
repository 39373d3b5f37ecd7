package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtifactRepository links sessions to uploaded evidence and reports.
type ArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{pool: pool}
}

// Create inserts an artifact record at the start of a monitoring run.
// Remote id and report path are filled in as the run progresses.
func (r *ArtifactRepository) Create(ctx context.Context, a *model.ProctoringArtifact) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO proctoring_artifacts (id, exam_id, student_id)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		a.ID, a.ExamID, a.StudentID,
	).Scan(&a.CreatedAt)
}

// SetRemoteID records the storage id of the uploaded evidence.
func (r *ArtifactRepository) SetRemoteID(ctx context.Context, id uuid.UUID, remoteID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE proctoring_artifacts SET remote_artifact_id = $1 WHERE id = $2`, remoteID, id)
	return err
}

// SetReportPath records where the generated report was written.
func (r *ArtifactRepository) SetReportPath(ctx context.Context, id uuid.UUID, path string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE proctoring_artifacts SET report_path = $1 WHERE id = $2`, path, id)
	return err
}

// GetBySession retrieves the most recent artifact for a session.
func (r *ArtifactRepository) GetBySession(ctx context.Context, examID uuid.UUID, studentID string) (*model.ProctoringArtifact, error) {
	a := &model.ProctoringArtifact{}
	var remoteID, reportPath *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, remote_artifact_id, report_path, created_at
		 FROM proctoring_artifacts
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`, examID, studentID,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &remoteID, &reportPath, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if remoteID != nil {
		a.RemoteArtifactID = *remoteID
	}
	if reportPath != nil {
		a.ReportPath = *reportPath
	}
	return a, nil
}
