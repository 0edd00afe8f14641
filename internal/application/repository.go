package application

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

// SubmittedSince returns applications still in submitted status created after
// since, for users who accept promotional email.
func (r *Repository) SubmittedSince(ctx context.Context, since time.Time) ([]Pending, error) {
	out := []Pending{}
	rows, err := r.db.QueryContext(ctx, `SELECT u.id, u.email, u.name, a.created_at, j.id, j.name, j.company, j.location, j.salary, j.external_url, j.created_at
		FROM applications a
		JOIN users u ON u.id = a.user_id
		JOIN jobs j ON j.id = a.job_id
		WHERE a.created_at >= $1
		AND a.status = $2
		AND u.is_promotion_email_enabled = TRUE
		ORDER BY u.id, a.created_at DESC`, since, string(StatusSubmitted))
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.UserID, &p.UserEmail, &p.UserName, &p.AppliedAt, &p.Job.ID, &p.Job.Name, &p.Job.Company, &p.Job.Location, &p.Job.Salary, &p.Job.URL, &p.Job.CreatedAt); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppliedPairsSince returns every (user, job) applied to since the given time
// by any of userIDs, whatever the status.
func (r *Repository) AppliedPairsSince(ctx context.Context, since time.Time, userIDs []string) (map[Pair]struct{}, error) {
	out := map[Pair]struct{}{}
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, job_id FROM applications WHERE created_at >= $1 AND user_id = ANY($2)`, since, pq.Array(userIDs))
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.UserID, &p.JobID); err != nil {
			return out, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}
