package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	HeaderID        = "webhook-id"
	HeaderSignature = "webhook-signature"
	HeaderTimestamp = "webhook-timestamp"

	secretPrefix       = "whsec_"
	signatureTolerance = 5 * time.Minute
)

type Verifier interface {
	Verify(body []byte, header http.Header) (Event, error)
}

// StandardVerifier checks deliveries signed with the Standard Webhooks scheme.
type StandardVerifier struct {
	key []byte
	now func() time.Time
}

func NewStandardVerifier(secret string) (*StandardVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "invalid webhook secret")
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("webhook secret cannot be empty")
	}
	return &StandardVerifier{key: key, now: time.Now}, nil
}

type standardPayload struct {
	Type string `json:"type"`
	Data struct {
		PaymentID    string            `json:"payment_id"`
		Status       string            `json:"status"`
		Currency     string            `json:"currency"`
		TotalAmount  int64             `json:"total_amount"`
		Billing      json.RawMessage   `json:"billing"`
		Customer     json.RawMessage   `json:"customer"`
		Metadata     map[string]string `json:"metadata"`
		ErrorMessage string            `json:"error_message"`
	} `json:"data"`
}

func (v *StandardVerifier) Verify(body []byte, header http.Header) (Event, error) {
	id := header.Get(HeaderID)
	ts := header.Get(HeaderTimestamp)
	sigs := header.Get(HeaderSignature)
	if id == "" || ts == "" || sigs == "" {
		return Event{}, errors.Wrap(ErrInvalidSignature, "missing webhook headers")
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Event{}, errors.Wrap(ErrInvalidSignature, "invalid webhook timestamp")
	}
	skew := v.now().Sub(time.Unix(sec, 0))
	if skew > signatureTolerance || skew < -signatureTolerance {
		return Event{}, errors.Wrap(ErrInvalidSignature, "webhook timestamp outside tolerance")
	}
	expected := v.Sign(id, ts, body)
	matched := false
	for _, s := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(s, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return Event{}, ErrInvalidSignature
	}

	var p standardPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, errors.Wrap(err, "unable to decode webhook payload")
	}
	return Event{
		ID:   id,
		Type: EventType(p.Type),
		Snapshot: Snapshot{
			PaymentID:   p.Data.PaymentID,
			Status:      p.Data.Status,
			Currency:    p.Data.Currency,
			TotalAmount: p.Data.TotalAmount,
			Billing:     p.Data.Billing,
			Customer:    p.Data.Customer,
		},
		Metadata:     Metadata(p.Data.Metadata),
		ErrorMessage: p.Data.ErrorMessage,
	}, nil
}

// Sign returns the base64 signature of a delivery, without the version prefix.
func (v *StandardVerifier) Sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
