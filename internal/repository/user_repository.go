package repository

import (
	"context"
	"errors"

	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository reads user accounts. Accounts are managed by an
// external service; this layer only resolves identities for
// notifications and submission lookups.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var studentID *string
	err := row.Scan(&u.Email, &u.Name, &u.Role, &studentID, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if studentID != nil {
		u.StudentID = *studentID
	}
	return u, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT email, name, role, student_id, password_hash FROM users WHERE email = $1`, email))
}

// GetByStudentID retrieves a student account by student id.
func (r *UserRepository) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT email, name, role, student_id, password_hash FROM users
		 WHERE student_id = $1 AND role = $2`, studentID, model.RoleStudent))
}

// FindProctor retrieves any proctor account for alert routing.
func (r *UserRepository) FindProctor(ctx context.Context) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT email, name, role, student_id, password_hash FROM users
		 WHERE role = $1 LIMIT 1`, model.RoleProctor))
}

// Create inserts a user. Used by seeding tools and end-to-end tests.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (email, name, role, student_id, password_hash)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 ON CONFLICT (email) DO UPDATE SET name = $2, role = $3, student_id = NULLIF($4, ''), password_hash = $5`,
		u.Email, u.Name, u.Role, u.StudentID, u.PasswordHash)
	return err
}
