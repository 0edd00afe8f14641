package template_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gethired/job-board/internal/job"
	"github.com/gethired/job-board/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderJobAlert(t *testing.T) {
	tmpl := template.NewTemplate()
	out, err := tmpl.RenderString(template.ViewJobAlert, template.JobListEmail{
		Site:         template.Site{Name: "GetHired", URL: "https://gethired.test"},
		FirstName:    "Ada",
		SearchName:   "Go in Berlin",
		CallToAction: "See all matches",
		Jobs: []job.Summary{
			{Name: "Go Engineer", Company: "Acme", URL: "https://acme.test/jobs/1", CreatedAt: time.Now().Add(-48 * time.Hour), Snippet: "Build **fast** services"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Ada,")
	assert.Contains(t, out, "1 new job matches your saved search <b>Go in Berlin</b>")
	assert.Contains(t, out, "posted 2 days ago")
	assert.Contains(t, out, "Build fast services")
}

func TestRenderPaymentStatus(t *testing.T) {
	tmpl := template.NewTemplate()
	out, err := tmpl.RenderString(template.ViewPaymentStatus, template.PaymentEmail{
		Site:      template.Site{Name: "GetHired", URL: "https://gethired.test"},
		FirstName: "Ada",
		Status:    "complete",
		Credits:   50,
		Balance:   1250,
		Amount:    1999,
		Currency:  "usd",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "USD 19.99")
	assert.Contains(t, out, "We added 50 AI credits")
	assert.Contains(t, out, "balance is now 1,250 credits")
}

func TestMarkdownToHTMLSanitizes(t *testing.T) {
	tmpl := template.NewTemplate()
	out := string(tmpl.MarkdownToHTML("# Role\n\n<script>alert(1)</script>\n\n[apply](https://acme.test)"))
	assert.Contains(t, out, "<h1>Role</h1>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `href="https://acme.test"`)
}

func TestSnippetTruncates(t *testing.T) {
	tmpl := template.NewTemplate()
	long := strings.Repeat("Go & distributed systems. ", 20)
	s := tmpl.Snippet(long)
	assert.True(t, strings.HasSuffix(s, "…"))
	assert.True(t, strings.HasPrefix(s, "Go & distributed"))
	assert.LessOrEqual(t, len([]rune(s)), 181)
}
