package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/email"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to      string
	subject string
	html    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sent
}

func (m *fakeMailer) SendHTMLEmail(ctx context.Context, from, to email.Address, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{to: to.Email, subject: subject, html: html})
	return nil
}

type fakeNotifier struct {
	texts []string
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return n.err
}

func newReporter(m report.Mailer, n report.Notifier) *report.Reporter {
	return report.NewReporter(m, template.NewTemplate(),
		email.Address{Email: "no-reply@gethired.test"},
		email.Address{Email: "ops@gethired.test"},
		template.Site{Name: "GetHired", URL: "https://gethired.test"},
		n, zerolog.Nop())
}

func TestSendIncludesFailures(t *testing.T) {
	m := &fakeMailer{}
	n := &fakeNotifier{err: errors.New("telegram down")}
	rep := batch.Report{
		Successes: []batch.Result{{Success: true, Identifier: "a"}},
		Failures:  []batch.Result{{Identifier: "bookmark-9", Error: "search api returned 502"}},
	}

	err := newReporter(m, n).Send(context.Background(), "Job Alerts", "run-1", []template.Stat{{Label: "Emails Sent", Value: 1}}, rep)
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ops@gethired.test", m.sent[0].to)
	assert.Equal(t, "[GetHired] Job Alerts: 1 ok, 1 failed", m.sent[0].subject)
	assert.Contains(t, m.sent[0].html, "bookmark-9")
	assert.Contains(t, m.sent[0].html, "Emails Sent")
	assert.Len(t, n.texts, 1)
}

func TestNoTargets(t *testing.T) {
	m := &fakeMailer{}
	err := newReporter(m, nil).NoTargets(context.Background(), "Weekly Digest", "run-2", "users")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "[GetHired] Weekly Digest: no users found", m.sent[0].subject)
	assert.Contains(t, m.sent[0].html, "No users found")
}

func TestOutcomeMessage(t *testing.T) {
	o := report.Outcome{Name: "favorites-reminder", NoTargets: true}
	assert.Equal(t, "favorites-reminder: no targets found", o.Message())

	o = report.Outcome{Name: "job-alert", Report: batch.Report{Successes: []batch.Result{{Success: true}}, Failures: []batch.Result{{}}}}
	assert.Equal(t, "job-alert: processed 2, succeeded 1, failed 1", o.Message())
}
