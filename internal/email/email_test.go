package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gethired/job-board/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTMLEmail(t *testing.T) {
	var got email.EmailMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := email.NewClient("test-key", "no-reply@gethired.test", "ops@gethired.test", "GetHired", 0, email.WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = c.SendHTMLEmail(context.Background(), c.NoReplySender(), email.Address{Email: "ada@example.com"}, "Hello", `<p>Hi <b>Ada</b></p><p><a class="button" href="https://gethired.test">Open</a></p>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "no-reply@gethired.test", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "ada@example.com", got.To[0].Email)
	assert.Equal(t, "Hi Ada\nOpen", got.TextContent)
}

func TestSendHTMLEmailUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	c, err := email.NewClient("test-key", "no-reply@gethired.test", "ops@gethired.test", "GetHired", 5, email.WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = c.SendHTMLEmail(context.Background(), c.NoReplySender(), email.Address{Email: "ada@example.com"}, "Hello", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got status code 400")
}

func TestSendHTMLEmailRequiresRecipient(t *testing.T) {
	c, err := email.NewClient("test-key", "no-reply@gethired.test", "ops@gethired.test", "GetHired", 0)
	require.NoError(t, err)
	require.Error(t, c.SendHTMLEmail(context.Background(), c.NoReplySender(), email.Address{}, "Hello", "<p>x</p>"))
}

func TestPlainTextFallsBackToDocumentText(t *testing.T) {
	text, err := email.PlainText("<div>just   some\n text</div>")
	require.NoError(t, err)
	assert.Equal(t, "just some text", text)
}
