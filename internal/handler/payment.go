package handler

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/gethired/job-board/internal/middleware"
	"github.com/gethired/job-board/internal/payment"
	"github.com/gethired/job-board/internal/server"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	stripe "github.com/stripe/stripe-go"
)

type Webhooks interface {
	Handle(ctx context.Context, ev payment.Event) (payment.Outcome, error)
}

type Checkout interface {
	Price(credits int) (int64, error)
	CreateSession(email, userID, sessionID string, credits int) (*stripe.CheckoutSession, error)
}

type PendingPayments interface {
	CreatePending(ctx context.Context, p payment.Payment) error
}

const webhookSeenPrefix = "webhook:"

func PaymentWebhookHandler(svr server.Server, verifier payment.Verifier, webhooks Webhooks) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		const MaxBodyBytes = int64(65536)
		req.Body = http.MaxBytesReader(w, req.Body, MaxBodyBytes)
		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			svr.Fail(w, http.StatusBadRequest, "unable to read request body")
			return
		}

		ev, err := verifier.Verify(body, req.Header)
		if err != nil {
			log := svr.Logger()
			log.Warn().Err(err).Msg("rejected payment webhook")
			svr.Fail(w, http.StatusBadRequest, "invalid webhook")
			return
		}
		// redeliveries of an event already answered with 2xx skip the database
		if ev.ID != "" {
			if msg, ok := svr.CacheGet(webhookSeenPrefix + ev.ID); ok {
				svr.Success(w, http.StatusOK, string(msg))
				return
			}
		}

		out, err := webhooks.Handle(req.Context(), ev)
		if err != nil {
			svr.Log(err, "unable to reconcile payment webhook")
		}
		if out.Status >= 300 {
			svr.Fail(w, out.Status, out.Message)
			return
		}
		if ev.ID != "" {
			if err := svr.CacheSet(webhookSeenPrefix+ev.ID, []byte(out.Message)); err != nil {
				log := svr.Logger()
				log.Warn().Err(err).Msg("unable to cache webhook id")
			}
		}
		svr.Success(w, out.Status, out.Message)
	}
}

// CheckoutHandler starts a Stripe checkout for a credit pack and records the
// pending payment the webhook will later reconcile.
func CheckoutHandler(svr server.Server, checkout Checkout, payments PendingPayments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := middleware.GetUserFromJWT(r, svr.SessionStore, svr.GetJWTSigningKey())
		if err != nil {
			svr.Fail(w, http.StatusUnauthorized, "sign in required")
			return
		}
		req := struct {
			Credits int `json:"credits"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			svr.Fail(w, http.StatusBadRequest, "invalid request")
			return
		}
		amount, err := checkout.Price(req.Credits)
		if err != nil {
			svr.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		sessionID := ksuid.New().String()
		// the row must exist before Stripe can deliver a webhook for it
		err = payments.CreatePending(r.Context(), payment.Payment{
			UserID:      profile.UserID,
			SessionID:   sessionID,
			Currency:    "USD",
			TotalAmount: amount,
			Credits:     req.Credits,
		})
		if err != nil {
			svr.Log(err, "unable to save pending payment")
			svr.Fail(w, http.StatusInternalServerError, "unable to start checkout")
			return
		}
		sess, err := checkout.CreateSession(profile.Email, profile.UserID, sessionID, req.Credits)
		if err != nil {
			svr.Log(errors.Wrapf(err, "pending payment %s", sessionID), "unable to create checkout session")
			svr.Fail(w, http.StatusInternalServerError, "unable to start checkout")
			return
		}
		svr.Success(w, http.StatusOK, sess.ID)
	}
}
