package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db}
}

func (r *Repository) State(ctx context.Context, userID, sessionID string) (Payment, error) {
	p := Payment{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_id, COALESCE(payment_id, ''), status, currency, total_amount, credits, credits_fulfilled, email_sent, COALESCE(failure_reason, ''), created_at, updated_at
		FROM payments
		WHERE user_id = $1 AND session_id = $2`, userID, sessionID)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SessionID,
		&p.PaymentID,
		&p.Status,
		&p.Currency,
		&p.TotalAmount,
		&p.Credits,
		&p.CreditsFulfilled,
		&p.EmailSent,
		&p.FailureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r *Repository) CreatePending(ctx context.Context, p Payment) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (user_id, session_id, status, currency, total_amount, credits, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $6)`,
		p.UserID, p.SessionID, p.Currency, p.TotalAmount, p.Credits, now)
	return err
}

// UpdateStatus overwrites the status and the snapshot fields the gateway sent.
// Empty snapshot fields keep what is stored.
func (r *Repository) UpdateStatus(ctx context.Context, userID, sessionID string, status Status, snap Snapshot, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET
			status = $3,
			payment_id = COALESCE(NULLIF($4, ''), payment_id),
			currency = COALESCE(NULLIF($5, ''), currency),
			total_amount = COALESCE(NULLIF($6, 0), total_amount),
			billing = COALESCE($7::jsonb, billing),
			customer = COALESCE($8::jsonb, customer),
			failure_reason = NULLIF($9, ''),
			updated_at = NOW()
		WHERE user_id = $1 AND session_id = $2`,
		userID, sessionID, status, snap.PaymentID, snap.Currency, snap.TotalAmount, jsonb(snap.Billing), jsonb(snap.Customer), reason)
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

// Fulfill claims the payment and credits the user in one transaction. Only
// the delivery that flips credits_fulfilled gets claimed=true, every other
// concurrent or repeated delivery sees claimed=false and writes nothing.
func (r *Repository) Fulfill(ctx context.Context, userID, sessionID string, credits int, snap Snapshot) (balance int, claimed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err != nil || !claimed {
			tx.Rollback()
		}
	}()

	var n int
	err = tx.QueryRowContext(ctx,
		`WITH rows AS (
			UPDATE payments SET
				status = 'complete',
				credits_fulfilled = TRUE,
				fulfillment_date = NOW(),
				payment_id = COALESCE(NULLIF($3, ''), payment_id),
				currency = COALESCE(NULLIF($4, ''), currency),
				total_amount = COALESCE(NULLIF($5, 0), total_amount),
				billing = COALESCE($6::jsonb, billing),
				customer = COALESCE($7::jsonb, customer),
				failure_reason = NULL,
				updated_at = NOW()
			WHERE user_id = $1 AND session_id = $2 AND credits_fulfilled = FALSE
			RETURNING 1
		)
		SELECT count(*) FROM rows`,
		userID, sessionID, snap.PaymentID, snap.Currency, snap.TotalAmount, jsonb(snap.Billing), jsonb(snap.Customer)).Scan(&n)
	if err != nil {
		return 0, false, errors.Wrap(err, "unable to claim payment")
	}
	if n == 0 {
		return 0, false, nil
	}
	claimed = true

	err = tx.QueryRowContext(ctx,
		`UPDATE users SET ai_credits = ai_credits + $2 WHERE id = $1 RETURNING ai_credits`,
		userID, credits).Scan(&balance)
	if err != nil {
		return 0, false, errors.Wrap(err, "unable to credit user")
	}
	if err = tx.Commit(); err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

func (r *Repository) MarkEmailSent(ctx context.Context, userID, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payments SET email_sent = TRUE, updated_at = NOW() WHERE user_id = $1 AND session_id = $2`, userID, sessionID)
	return err
}

func jsonb(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
