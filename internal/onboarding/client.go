package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

const secretHeader = "X-Internal-Secret"

// Profile is what the embedding capability indexes for a user.
type Profile struct {
	UserID          string   `json:"userId"`
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	Locations       []string `json:"locations"`
	JobTypes        []string `json:"jobTypes"`
	YearsExperience int      `json:"yearsExperience"`
}

type poster struct {
	endpoint string
	secret   string
	client   *http.Client
}

func (p poster) post(ctx context.Context, what string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, p.secret)
	res, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", what)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := ioutil.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%s returned status %d: %s", what, res.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func newPoster(endpoint, secret string, hc *http.Client) poster {
	if hc == nil {
		hc = &http.Client{}
	}
	return poster{endpoint: endpoint, secret: secret, client: hc}
}

type ResumeClient struct {
	poster
}

func NewResumeClient(endpoint, secret string, hc *http.Client) *ResumeClient {
	return &ResumeClient{newPoster(endpoint, secret, hc)}
}

// Parse returns once the parsed resume content is stored.
func (c *ResumeClient) Parse(ctx context.Context, userID, resumeID string) error {
	return c.post(ctx, "resume parse", map[string]string{"userId": userID, "resumeId": resumeID})
}

type EmbeddingClient struct {
	poster
}

func NewEmbeddingClient(endpoint, secret string, hc *http.Client) *EmbeddingClient {
	return &EmbeddingClient{newPoster(endpoint, secret, hc)}
}

func (c *EmbeddingClient) Update(ctx context.Context, p Profile) error {
	return c.post(ctx, "embedding update", p)
}
