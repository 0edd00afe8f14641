package meta

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) GetValue(ctx context.Context, key string) (string, error) {
	res := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = $1`, key)
	var val string
	err := res.Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *Repository) SetValue(ctx context.Context, key, val string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, val)
	return err
}

func lastRunKey(name string) string {
	return "last_run_" + name
}

// SetLastRun records when the named batch run last completed.
func (r *Repository) SetLastRun(ctx context.Context, name string, at time.Time) error {
	return r.SetValue(ctx, lastRunKey(name), at.UTC().Format(time.RFC3339))
}

// LastRun returns the zero time when the run never completed.
func (r *Repository) LastRun(ctx context.Context, name string) (time.Time, error) {
	val, err := r.GetValue(ctx, lastRunKey(name))
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid last run for %s", name)
	}
	return t, nil
}
