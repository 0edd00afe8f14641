package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	stripe "github.com/stripe/stripe-go"
	session "github.com/stripe/stripe-go/checkout/session"
	"github.com/stripe/stripe-go/paymentintent"
	webhook "github.com/stripe/stripe-go/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

var stripeEventTypes = map[string]EventType{
	"payment_intent.succeeded":      EventSucceeded,
	"payment_intent.payment_failed": EventFailed,
	"payment_intent.canceled":       EventCancelled,
	"payment_intent.processing":     EventProcessing,
}

type StripeVerifier struct {
	endpointSecret string
}

func NewStripeVerifier(endpointSecret string) *StripeVerifier {
	return &StripeVerifier{endpointSecret: endpointSecret}
}

func (v *StripeVerifier) Verify(body []byte, header http.Header) (Event, error) {
	event, err := webhook.ConstructEvent(body, header.Get(stripeSignatureHeader), v.endpointSecret)
	if err != nil {
		return Event{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	t, ok := stripeEventTypes[event.Type]
	if !ok {
		return Event{ID: event.ID, Type: EventType(event.Type)}, nil
	}
	if event.Data == nil {
		return Event{}, fmt.Errorf("stripe event %s has no data", event.ID)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return Event{}, errors.Wrap(err, "error parsing webhook JSON")
	}
	ev := Event{
		ID:       event.ID,
		Type:     t,
		Snapshot: intentSnapshot(&pi),
		Metadata: Metadata(pi.Metadata),
	}
	if pi.LastPaymentError != nil {
		ev.ErrorMessage = pi.LastPaymentError.Msg
	}
	return ev, nil
}

func intentSnapshot(pi *stripe.PaymentIntent) Snapshot {
	snap := Snapshot{
		PaymentID:   pi.ID,
		Status:      string(pi.Status),
		Currency:    strings.ToUpper(string(pi.Currency)),
		TotalAmount: pi.Amount,
	}
	if pi.Customer != nil {
		snap.Customer, _ = json.Marshal(map[string]string{"id": pi.Customer.ID, "email": pi.ReceiptEmail})
	}
	return snap
}

type Retriever interface {
	Get(ctx context.Context, paymentID string) (Snapshot, error)
}

type StripeRetriever struct {
	stripeKey string
}

func NewStripeRetriever(stripeKey string) *StripeRetriever {
	return &StripeRetriever{stripeKey: stripeKey}
}

func (r *StripeRetriever) Get(ctx context.Context, paymentID string) (Snapshot, error) {
	stripe.Key = r.stripeKey
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(paymentID, params)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "unable to retrieve payment intent %s", paymentID)
	}
	return intentSnapshot(pi), nil
}

// Checkout starts Stripe checkout sessions for credit packs.
type Checkout struct {
	stripeKey string
	siteName  string
	siteURL   string
	packs     map[int]int64
}

var ErrUnknownPack = errors.New("unknown credit pack")

func NewCheckout(stripeKey, siteName, siteURL string, packs map[int]int64) *Checkout {
	return &Checkout{
		stripeKey: stripeKey,
		siteName:  siteName,
		siteURL:   siteURL,
		packs:     packs,
	}
}

// Price returns the amount in cents for a pack of credits.
func (c *Checkout) Price(credits int) (int64, error) {
	amount, ok := c.packs[credits]
	if !ok {
		return 0, ErrUnknownPack
	}
	return amount, nil
}

// CreateSession returns the checkout session id. The payment intent carries
// the metadata the webhook needs to find the pending payment row.
func (c *Checkout) CreateSession(email, userID, sessionID string, credits int) (*stripe.CheckoutSession, error) {
	params, err := c.sessionParams(email, userID, sessionID, credits)
	if err != nil {
		return nil, err
	}
	stripe.Key = c.stripeKey
	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("unable to create stripe session: %+v", err)
	}

	return sess, nil
}

func (c *Checkout) sessionParams(email, userID, sessionID string, credits int) (*stripe.CheckoutSessionParams, error) {
	amount, err := c.Price(credits)
	if err != nil {
		return nil, err
	}
	return &stripe.CheckoutSessionParams{
		BillingAddressCollection: stripe.String("required"),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Name:     stripe.String(fmt.Sprintf("%s %d AI Credits", c.siteName, credits)),
				Amount:   stripe.Int64(amount),
				Currency: stripe.String("usd"),
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Params: stripe.Params{
				Metadata: map[string]string{
					"user_id":    userID,
					"session_id": sessionID,
					"credits":    strconv.Itoa(credits),
				},
			},
		},
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/account/credits?payment=1&session=%s", c.siteURL, sessionID)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/account/credits?payment=0&session=%s", c.siteURL, sessionID)),
		CustomerEmail:     &email,
	}, nil
}
