package favorite

import (
	"context"
	"database/sql"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) SaveJob(ctx context.Context, userID string, jobID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, job_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, job_id) DO NOTHING`,
		userID,
		jobID,
		time.Now().UTC(),
	)
	return err
}

// SavedSince returns favorites created after since for users who accept
// promotional email.
func (r *Repository) SavedSince(ctx context.Context, since time.Time) ([]Favorite, error) {
	out := []Favorite{}
	rows, err := r.db.QueryContext(ctx, `SELECT u.id, u.email, u.name, f.created_at, j.id, j.name, j.company, j.location, j.salary, j.description, j.external_url, j.created_at
		FROM favorites f
		JOIN users u ON u.id = f.user_id
		JOIN jobs j ON j.id = f.job_id
		WHERE f.created_at >= $1
		AND u.is_promotion_email_enabled = TRUE
		ORDER BY u.id, f.created_at DESC`, since)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.UserID, &f.UserEmail, &f.UserName, &f.SavedAt, &f.Job.ID, &f.Job.Name, &f.Job.Company, &f.Job.Location, &f.Job.Salary, &f.Job.Description, &f.Job.URL, &f.Job.CreatedAt); err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
