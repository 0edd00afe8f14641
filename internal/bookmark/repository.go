package bookmark

import (
	"context"
	"database/sql"
	"time"

	"github.com/segmentio/ksuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

// AlertEnabled returns every bookmark with alerts switched on, joined to its
// owner. Relevance sorted searches are filtered by AlertEligible.
func (r *Repository) AlertEnabled(ctx context.Context) ([]Bookmark, error) {
	bookmarks := []Bookmark{}
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, u.email, u.name, b.url, b.name, b.is_alert_on, b.created_at
		FROM bookmarks b
		JOIN users u ON u.id = b.user_id
		WHERE b.is_alert_on = TRUE
		ORDER BY b.created_at ASC`)
	if err != nil {
		return bookmarks, err
	}
	defer rows.Close()
	for rows.Next() {
		b := Bookmark{}
		err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.UserEmail,
			&b.UserName,
			&b.URL,
			&b.Name,
			&b.IsAlertOn,
			&b.CreatedAt,
		)
		if err != nil {
			return bookmarks, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

func (r *Repository) SaveBookmark(ctx context.Context, userID, searchURL, name string, alertOn bool) (Bookmark, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return Bookmark{}, err
	}
	b := Bookmark{
		ID:        id.String(),
		UserID:    userID,
		URL:       searchURL,
		Name:      name,
		IsAlertOn: alertOn,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, url, name, is_alert_on, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.UserID, b.URL, b.Name, b.IsAlertOn, b.CreatedAt)
	return b, err
}
