package favorite_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gethired/job-board/internal/favorite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveJobIgnoresDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO favorites (user_id, job_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, job_id) DO NOTHING`)).
		WithArgs("u1", 42, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, favorite.NewRepository(db).SaveJob(context.Background(), "u1", 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	since := time.Date(2026, 10, 7, 0, 0, 0, 0, time.UTC)
	now := since.Add(48 * time.Hour)

	mock.ExpectQuery(`SELECT u.id, u.email, u.name, f.created_at, j.id`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "email", "name", "saved_at", "job_id", "job_name", "company", "location", "salary", "description", "external_url", "created_at"}).
			AddRow("u1", "ada@example.com", "Ada Lovelace", now, 7, "Go Engineer", "Acme", "Berlin", "80k", "build things", "https://acme.test/7", now).
			AddRow("u1", "ada@example.com", "Ada Lovelace", now, 9, "SRE", "Initech", "Remote", "", "keep it up", "https://initech.test/9", now))

	favs, err := favorite.NewRepository(db).SavedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "u1", favs[0].UserID)
	assert.Equal(t, "Go Engineer", favs[0].Job.Name)
	assert.Equal(t, "https://initech.test/9", favs[1].Job.URL)
	require.NoError(t, mock.ExpectationsWereMet())
}
