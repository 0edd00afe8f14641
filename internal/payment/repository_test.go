package payment_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gethired/job-board/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimQuery = `WITH rows AS (`

func TestFulfillClaimsAndCredits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(claimQuery)).
		WithArgs("u1", "s1", "pay_1", "USD", int64(499), `{"country":"DE"}`, nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET ai_credits = ai_credits + $2 WHERE id = $1 RETURNING ai_credits`)).
		WithArgs("u1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"ai_credits"}).AddRow(13))
	mock.ExpectCommit()

	snap := payment.Snapshot{PaymentID: "pay_1", Currency: "USD", TotalAmount: 499, Billing: []byte(`{"country":"DE"}`)}
	balance, claimed, err := payment.NewRepository(db).Fulfill(context.Background(), "u1", "s1", 10, snap)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 13, balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillAlreadyClaimedWritesNoBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(claimQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, claimed, err := payment.NewRepository(db).Fulfill(context.Background(), "u1", "s1", 10, payment.Snapshot{})
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, user_id, session_id`).
		WithArgs("u1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = payment.NewRepository(db).State(context.Background(), "u1", "missing")
	assert.Equal(t, payment.ErrNotFound, err)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, user_id, session_id`).
		WithArgs("u1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "session_id", "payment_id", "status", "currency", "total_amount", "credits", "credits_fulfilled", "email_sent", "failure_reason", "created_at", "updated_at"}).
			AddRow(1, "u1", "s1", "", "pending", "USD", 499, 10, false, false, "", now, now))
	p, err := payment.NewRepository(db).State(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, 10, p.Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusUnknownRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE payments SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = payment.NewRepository(db).UpdateStatus(context.Background(), "u1", "s1", payment.StatusFailed, payment.Snapshot{}, "declined")
	assert.Equal(t, payment.ErrNotFound, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
