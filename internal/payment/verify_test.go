package payment

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("gethired-test-signing-key"))

const succeededBody = `{"type":"payment.succeeded","data":{"payment_id":"pay_1","status":"succeeded","currency":"USD","total_amount":499,"billing":{"country":"DE"},"metadata":{"user_id":"u1","session_id":"s1","credits":"10"}}}`

func signedHeader(t *testing.T, v *StandardVerifier, id string, at time.Time, body string) http.Header {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderSignature, "v1,"+v.Sign(id, ts, []byte(body)))
	return h
}

func newTestVerifier(t *testing.T, now time.Time) *StandardVerifier {
	t.Helper()
	v, err := NewStandardVerifier(testSecret)
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func TestStandardVerifierAcceptsSignedDelivery(t *testing.T) {
	now := time.Unix(1790000000, 0)
	v := newTestVerifier(t, now)

	ev, err := v.Verify([]byte(succeededBody), signedHeader(t, v, "msg_1", now.Add(-time.Minute), succeededBody))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", ev.ID)
	assert.Equal(t, EventSucceeded, ev.Type)
	assert.Equal(t, "u1", ev.Metadata.UserID())
	assert.Equal(t, "s1", ev.Metadata.SessionID())
	assert.Equal(t, 10, ev.Metadata.Credits())
	assert.Equal(t, int64(499), ev.Snapshot.TotalAmount)
	assert.JSONEq(t, `{"country":"DE"}`, string(ev.Snapshot.Billing))
}

func TestStandardVerifierRejects(t *testing.T) {
	now := time.Unix(1790000000, 0)
	v := newTestVerifier(t, now)

	tampered := signedHeader(t, v, "msg_1", now, succeededBody)
	_, err := v.Verify([]byte(`{"type":"payment.succeeded","data":{}}`), tampered)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	stale := signedHeader(t, v, "msg_1", now.Add(-6*time.Minute), succeededBody)
	_, err = v.Verify([]byte(succeededBody), stale)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	future := signedHeader(t, v, "msg_1", now.Add(6*time.Minute), succeededBody)
	_, err = v.Verify([]byte(succeededBody), future)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	missing := signedHeader(t, v, "msg_1", now, succeededBody)
	missing.Del(HeaderID)
	_, err = v.Verify([]byte(succeededBody), missing)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestStandardVerifierAcceptsAnyListedSignature(t *testing.T) {
	now := time.Unix(1790000000, 0)
	v := newTestVerifier(t, now)
	h := signedHeader(t, v, "msg_2", now, succeededBody)
	h.Set(HeaderSignature, "v1,bm90LXRoZS1zaWduYXR1cmU= v2,ignored "+h.Get(HeaderSignature))

	_, err := v.Verify([]byte(succeededBody), h)
	assert.NoError(t, err)
}

func TestNewStandardVerifierBadSecret(t *testing.T) {
	_, err := NewStandardVerifier("whsec_not base64!")
	assert.Error(t, err)
	_, err = NewStandardVerifier("whsec_")
	assert.Error(t, err)
}

func TestMetadataCredits(t *testing.T) {
	assert.Equal(t, 0, Metadata{}.Credits())
	assert.Equal(t, 0, Metadata{"credits": "ten"}.Credits())
	assert.Equal(t, 0, Metadata{"credits": "-5"}.Credits())
	assert.Equal(t, 150, Metadata{"credits": "150"}.Credits())
}
