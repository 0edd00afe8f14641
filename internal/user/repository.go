package user

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

// GetContact resolves the display name and email of a user.
func (r *Repository) GetContact(ctx context.Context, id string) (Contact, error) {
	c := Contact{}
	err := r.db.QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = $1`, id).Scan(&c.ID, &c.Email, &c.Name)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// OnboardedUsers lists the users whose relevance feed is maintained.
func (r *Repository) OnboardedUsers(ctx context.Context) ([]Contact, error) {
	return r.contacts(ctx, `SELECT id, email, name FROM users WHERE onboarding_completed = TRUE ORDER BY created_at ASC`)
}

// DigestSubscribers lists users who opted in to the weekly job digest.
func (r *Repository) DigestSubscribers(ctx context.Context) ([]Contact, error) {
	return r.contacts(ctx, `SELECT id, email, name FROM users WHERE is_job_digest_enabled = TRUE AND onboarding_completed = TRUE ORDER BY created_at ASC`)
}

func (r *Repository) contacts(ctx context.Context, query string) ([]Contact, error) {
	out := []Contact{}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.Name); err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRelevantJobsGenerated(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET relevant_jobs_generated = TRUE, relevant_jobs_failed = FALSE WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkRelevantJobsFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET relevant_jobs_failed = TRUE WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkOnboardingCompleted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET onboarding_completed = TRUE, relevant_jobs_generated = FALSE, relevant_jobs_failed = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
