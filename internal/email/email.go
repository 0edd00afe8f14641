package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type Client struct {
	noReplyAddress string
	adminAddress   string
	siteName       string
	client         *http.Client
	apiKey         string
	baseURL        string
	limiter        *rate.Limiter
}

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type EmailMessage struct {
	Sender      Address   `json:"sender"`
	To          []Address `json:"to"`
	Subject     string    `json:"subject"`
	ReplyTo     *Address  `json:"replyTo,omitempty"`
	TextContent string    `json:"textContent,omitempty"`
	HtmlContent string    `json:"htmlContent,omitempty"`
}

type Option func(*Client)

// WithBaseURL points the client at a different Sendinblue compatible host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient returns a Sendinblue client throttled to ratePerSecond sends.
// A non positive rate disables throttling.
func NewClient(apiKey, noReplyAddress, adminAddress, siteName string, ratePerSecond int, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("email api key cannot be empty")
	}
	limit := rate.Inf
	burst := 1
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = ratePerSecond
	}
	c := &Client{
		client:         &http.Client{},
		apiKey:         apiKey,
		siteName:       siteName,
		noReplyAddress: noReplyAddress,
		adminAddress:   adminAddress,
		baseURL:        "https://api.sendinblue.com",
		limiter:        rate.NewLimiter(limit, burst),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (e *Client) DefaultSenderName() string {
	return e.siteName
}

func (e *Client) NoReplySender() Address {
	return Address{Name: e.siteName, Email: e.noReplyAddress}
}

func (e *Client) AdminAddress() Address {
	return Address{Name: e.siteName + " Ops", Email: e.adminAddress}
}

// SendHTMLEmail sends html with a plain text alternative derived from it.
func (e *Client) SendHTMLEmail(ctx context.Context, from, to Address, subject, html string) error {
	if to.Email == "" {
		return errors.New("recipient email cannot be empty")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "email rate limiter")
	}
	text, err := PlainText(html)
	if err != nil {
		return errors.Wrap(err, "unable to derive text content")
	}
	msg := EmailMessage{
		Sender:      from,
		Subject:     subject,
		To:          []Address{to},
		HtmlContent: html,
		TextContent: text,
	}
	reqData, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v3/smtp/email", bytes.NewReader(reqData))
	if err != nil {
		return err
	}
	req.Header.Add("api-key", e.apiKey)
	req.Header.Add("content-type", "application/json")
	res, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		errBody, err := ioutil.ReadAll(res.Body)
		if err != nil {
			errBody = []byte(`unable to read body`)
		}
		return fmt.Errorf("got status code %d when sending email: err %s", res.StatusCode, string(errBody))
	}
	return nil
}

// PlainText flattens an html document into whitespace normalised text.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("style, script, head").Remove()
	var lines []string
	doc.Find("h1, h2, h3, p, li, td, a.button").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, td").Length() > 0 {
			return
		}
		line := strings.Join(strings.Fields(s.Text()), " ")
		if line == "" {
			return
		}
		if href, ok := s.Attr("href"); ok && href != "" {
			line = line + " (" + href + ")"
		}
		lines = append(lines, line)
	})
	if len(lines) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(lines, "\n"), nil
}
