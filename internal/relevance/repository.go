package relevance

import (
	"context"
	"database/sql"
	"time"

	"github.com/gethired/job-board/internal/job"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// ReplaceForUser swaps the whole ranking of a user for jobIDs in a single
// transaction. Rank is the 1-based position in jobIDs; repeated ids keep
// their first position.
func (r *Repository) ReplaceForUser(ctx context.Context, userID string, jobIDs []int) (err error) {
	ids, ranks := rankRows(jobIDs)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin ranking transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_relevant_jobs WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "unable to delete previous ranking")
	}
	if len(ids) > 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO user_relevant_jobs (user_id, job_id, rank, updated_at)
		SELECT $1, r.job_id, r.rank, $4
		FROM unnest($2::int[], $3::int[]) AS r(job_id, rank)`,
			userID, pq.Array(ids), pq.Array(ranks), r.now().UTC())
		if err != nil {
			return errors.Wrap(err, "unable to insert ranking")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "unable to commit ranking")
	}
	return nil
}

func rankRows(jobIDs []int) ([]int64, []int64) {
	seen := make(map[int]struct{}, len(jobIDs))
	ids := make([]int64, 0, len(jobIDs))
	ranks := make([]int64, 0, len(jobIDs))
	for _, id := range jobIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, int64(id))
		ranks = append(ranks, int64(len(ids)))
	}
	return ids, ranks
}

// ListForUser returns the top ranked jobs of a user, best first.
func (r *Repository) ListForUser(ctx context.Context, userID string, limit int) ([]job.Job, error) {
	jobs := []job.Job{}
	rows, err := r.db.QueryContext(ctx, `SELECT j.id, j.name, j.company, j.location, j.salary, j.job_type, j.description, j.external_url, j.platform, j.created_at
		FROM user_relevant_jobs u
		JOIN jobs j ON j.id = u.job_id
		WHERE u.user_id = $1
		ORDER BY u.rank ASC
		LIMIT $2`, userID, limit)
	if err != nil {
		return jobs, err
	}
	defer rows.Close()
	for rows.Next() {
		var j job.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.Company, &j.Location, &j.Salary, &j.Type, &j.Description, &j.URL, &j.Platform, &j.CreatedAt); err != nil {
			return jobs, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
