package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gethired/job-board/internal/email"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Store interface {
	State(ctx context.Context, userID, sessionID string) (Payment, error)
	UpdateStatus(ctx context.Context, userID, sessionID string, status Status, snap Snapshot, reason string) error
	Fulfill(ctx context.Context, userID, sessionID string, credits int, snap Snapshot) (int, bool, error)
	MarkEmailSent(ctx context.Context, userID, sessionID string) error
}

type Contacts interface {
	GetContact(ctx context.Context, id string) (user.Contact, error)
}

// Outcome is the HTTP answer for a webhook delivery.
type Outcome struct {
	Status  int
	Message string
}

const (
	MessageFulfilled        = "payment fulfilled"
	MessageAlreadyFulfilled = "payment already fulfilled"
	MessageUnhandled        = "unhandled event type"
	MessageStatusUpdated    = "payment status updated"
)

type Reconciler struct {
	store     Store
	contacts  Contacts
	retriever Retriever
	mailer    report.Mailer
	views     report.Renderer
	from      email.Address
	site      template.Site
	log       zerolog.Logger
}

// NewReconciler accepts a nil retriever, snapshots are then used as delivered.
func NewReconciler(store Store, contacts Contacts, retriever Retriever, mailer report.Mailer, views report.Renderer, from email.Address, site template.Site, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		contacts:  contacts,
		retriever: retriever,
		mailer:    mailer,
		views:     views,
		from:      from,
		site:      site,
		log:       log.With().Str("component", "payment").Logger(),
	}
}

// Handle applies a verified event. A non nil error always comes with a 5xx
// outcome and means the gateway should retry.
func (r *Reconciler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	if !ev.Type.Known() {
		r.log.Info().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("ignoring webhook event")
		return Outcome{Status: http.StatusOK, Message: MessageUnhandled}, nil
	}
	userID, sessionID := ev.Metadata.UserID(), ev.Metadata.SessionID()
	if userID == "" || sessionID == "" {
		return Outcome{Status: http.StatusBadRequest, Message: ErrMissingMetadata.Error()}, nil
	}
	logger := r.log.With().Str("event_id", ev.ID).Str("type", string(ev.Type)).Str("user_id", userID).Str("session_id", sessionID).Logger()

	state, err := r.store.State(ctx, userID, sessionID)
	if err == ErrNotFound {
		return Outcome{Status: http.StatusNotFound, Message: err.Error()}, nil
	}
	if err != nil {
		return Outcome{Status: http.StatusInternalServerError, Message: "unable to load payment"}, errors.Wrap(err, "unable to load payment")
	}
	if state.CreditsFulfilled {
		logger.Info().Msg(MessageAlreadyFulfilled)
		return Outcome{Status: http.StatusOK, Message: MessageAlreadyFulfilled}, nil
	}

	snap := r.refresh(ctx, logger, ev.Snapshot)
	if ev.Type == EventSucceeded {
		return r.fulfill(ctx, logger, ev, state, snap)
	}
	return r.update(ctx, logger, ev, state, snap)
}

func (r *Reconciler) refresh(ctx context.Context, logger zerolog.Logger, snap Snapshot) Snapshot {
	if r.retriever == nil || snap.Complete() || snap.PaymentID == "" {
		return snap
	}
	fresh, err := r.retriever.Get(ctx, snap.PaymentID)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to refresh payment snapshot")
		return snap
	}
	if len(fresh.Billing) == 0 {
		fresh.Billing = snap.Billing
	}
	if len(fresh.Customer) == 0 {
		fresh.Customer = snap.Customer
	}
	return fresh
}

func (r *Reconciler) fulfill(ctx context.Context, logger zerolog.Logger, ev Event, state Payment, snap Snapshot) (Outcome, error) {
	credits := ev.Metadata.Credits()
	if credits == 0 {
		credits = state.Credits
	}
	if credits == 0 {
		return Outcome{Status: http.StatusBadRequest, Message: "payment has no credits"}, nil
	}
	balance, claimed, err := r.store.Fulfill(ctx, state.UserID, state.SessionID, credits, snap)
	if err != nil {
		return Outcome{Status: http.StatusInternalServerError, Message: "unable to fulfill payment"}, err
	}
	if !claimed {
		logger.Info().Msg("lost fulfillment race")
		return Outcome{Status: http.StatusOK, Message: MessageAlreadyFulfilled}, nil
	}
	logger.Info().Int("credits", credits).Int("balance", balance).Msg(MessageFulfilled)
	r.notify(ctx, logger, state, template.PaymentEmail{
		Status:   string(StatusComplete),
		Credits:  credits,
		Balance:  balance,
		Amount:   amount(snap, state),
		Currency: currency(snap, state),
	})
	return Outcome{Status: http.StatusOK, Message: MessageFulfilled}, nil
}

func (r *Reconciler) update(ctx context.Context, logger zerolog.Logger, ev Event, state Payment, snap Snapshot) (Outcome, error) {
	status, label := StatusPending, "processing"
	switch ev.Type {
	case EventFailed:
		status, label = StatusFailed, string(StatusFailed)
	case EventCancelled:
		status, label = StatusCancelled, string(StatusCancelled)
	}
	if err := r.store.UpdateStatus(ctx, state.UserID, state.SessionID, status, snap, ev.ErrorMessage); err != nil {
		return Outcome{Status: http.StatusInternalServerError, Message: "unable to update payment"}, err
	}
	logger.Info().Str("status", string(status)).Msg(MessageStatusUpdated)
	r.notify(ctx, logger, state, template.PaymentEmail{
		Status:   label,
		Credits:  state.Credits,
		Amount:   amount(snap, state),
		Currency: currency(snap, state),
		Reason:   ev.ErrorMessage,
	})
	return Outcome{Status: http.StatusOK, Message: MessageStatusUpdated}, nil
}

// notify never fails the delivery. email_sent is only set after a send.
func (r *Reconciler) notify(ctx context.Context, logger zerolog.Logger, state Payment, data template.PaymentEmail) {
	contact, err := r.contacts.GetContact(ctx, state.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("no contact for payment email")
		return
	}
	data.Site = r.site
	data.FirstName = contact.FirstName()
	html, err := r.views.RenderString(template.ViewPaymentStatus, data)
	if err != nil {
		logger.Error().Err(err).Msg("unable to render payment email")
		return
	}
	to := email.Address{Name: contact.Name, Email: contact.Email}
	if err := r.mailer.SendHTMLEmail(ctx, r.from, to, subject(data.Status), html); err != nil {
		logger.Error().Err(err).Msg("unable to send payment email")
		return
	}
	if err := r.store.MarkEmailSent(ctx, state.UserID, state.SessionID); err != nil {
		logger.Warn().Err(err).Msg("unable to mark payment email sent")
	}
}

func subject(status string) string {
	switch status {
	case string(StatusComplete):
		return "Your AI credits are ready"
	case string(StatusFailed):
		return "Your payment failed"
	case string(StatusCancelled):
		return "Your payment was cancelled"
	}
	return fmt.Sprintf("Your payment is %s", status)
}

func amount(snap Snapshot, state Payment) int64 {
	if snap.TotalAmount > 0 {
		return snap.TotalAmount
	}
	return state.TotalAmount
}

func currency(snap Snapshot, state Payment) string {
	if snap.Currency != "" {
		return snap.Currency
	}
	return state.Currency
}
