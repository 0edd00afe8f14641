// Package search talks to the internal job search capability.
package search

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/allegro/bigcache/v3"
	"github.com/gethired/job-board/internal/job"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	SortByRelevance = "relevance"
	SecretHeader    = "X-Internal-Secret"
)

// ErrUpstream is returned when the search api answers with a non 2xx status.
var ErrUpstream = errors.New("search api returned an error")

type Client struct {
	endpoint *url.URL
	secret   string
	client   *http.Client
	cache    *bigcache.BigCache
	log      zerolog.Logger
}

type response struct {
	Data []job.Job `json:"data"`
}

// NewClient returns a client for endpoint. cache may be nil to disable
// requery caching.
func NewClient(endpoint, secret string, hc *http.Client, cache *bigcache.BigCache, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid search endpoint %q", endpoint)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		endpoint: u,
		secret:   secret,
		client:   hc,
		cache:    cache,
		log:      log.With().Str("component", "search").Logger(),
	}, nil
}

// Relevant returns up to limit relevance ranked jobs for userID created in
// the last createdAfterDays days, in ranked order.
func (c *Client) Relevant(ctx context.Context, userID string, limit, createdAfterDays int) ([]job.Job, error) {
	q := url.Values{}
	q.Set("sortBy", SortByRelevance)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("createdAfter", strconv.Itoa(createdAfterDays))
	q.Set("userId", userID)
	return c.fetch(ctx, q)
}

// Requery re-runs a saved search keeping its filters and overriding the
// recency window and result cap. Results are cached per request url.
func (c *Client) Requery(ctx context.Context, savedURL string, createdAfterDays, limit int) ([]job.Job, error) {
	saved, err := url.Parse(savedURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid saved search url %q", savedURL)
	}
	q := saved.Query()
	q.Set("createdAfter", strconv.Itoa(createdAfterDays))
	q.Set("limit", strconv.Itoa(limit))
	key := c.requestURL(q)
	if jobs, ok := c.cached(key); ok {
		return jobs, nil
	}
	jobs, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	c.store(key, jobs)
	return jobs, nil
}

func (c *Client) requestURL(q url.Values) string {
	u := *c.endpoint
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) fetch(ctx context.Context, q url.Values) ([]job.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(SecretHeader, c.secret)
	req.Header.Set("Accept", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := ioutil.ReadAll(res.Body)
		return nil, errors.Wrap(ErrUpstream, fmt.Sprintf("status %d: %s", res.StatusCode, string(body)))
	}
	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "unable to decode search response")
	}
	return out.Data, nil
}

func (c *Client) cached(key string) ([]job.Job, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	var jobs []job.Job
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&jobs); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		c.cache.Delete(key)
		return nil, false
	}
	return jobs, true
}

func (c *Client) store(key string, jobs []job.Job) {
	if c.cache == nil {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(jobs); err != nil {
		c.log.Warn().Err(err).Msg("unable to encode search results for cache")
		return
	}
	if err := c.cache.Set(key, buf.Bytes()); err != nil {
		c.log.Warn().Err(err).Msg("unable to cache search results")
	}
}
