// Package platform talks to the actor platform's REST API. Every call is made
// with the caller's bearer token and reported as an Attempt so resolvers can
// walk their fallback endpoints and classify the last failure.
package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.apify.com/v2"

// Roots lists the surfaces an actor is addressed through, owned actors first.
var Roots = []string{"acts", "store/acts"}

type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Entry
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(c *Client) {
		if entry != nil {
			c.log = entry
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(30 * time.Second),
		log:     log.WithField("component", "platform"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns the shared outbound client used for upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ActorPath builds "<root>/<actor id><suffix>".
func ActorPath(root, actorID, suffix string) string {
	return root + "/" + url.PathEscape(actorID) + suffix
}

// Attempt is the outcome of a single upstream call. Transport failures are
// recorded with status 500 and the error text as body.
type Attempt struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Err    error
}

func (a Attempt) OK() bool {
	return a.Err == nil && a.Status >= 200 && a.Status < 300
}

func (a Attempt) Text() string {
	return string(a.Body)
}

// Data unwraps the platform's {"data": ...} envelope.
func (a Attempt) Data() gjson.Result {
	return gjson.GetBytes(a.Body, "data")
}

func (c *Client) Get(ctx context.Context, token, path string) Attempt {
	return c.do(ctx, http.MethodGet, token, path, nil)
}

func (c *Client) Post(ctx context.Context, token, path string, body []byte) Attempt {
	return c.do(ctx, http.MethodPost, token, path, body)
}

func (c *Client) do(ctx context.Context, method, token, path string, body []byte) Attempt {
	attempt := Attempt{Method: method, Path: path}
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	entry := c.log.WithFields(log.Fields{"method": method, "path": path})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return transportFailure(attempt, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	entry.Debug("Calling upstream")
	res, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Error("Upstream request failed")
		return transportFailure(attempt, err)
	}
	defer res.Body.Close()

	attempt.Status = res.StatusCode
	attempt.Body, err = io.ReadAll(res.Body)
	if err != nil {
		entry.WithError(err).Error("Failed to read upstream response")
		return transportFailure(attempt, fmt.Errorf("failed to read response body: %w", err))
	}

	if !attempt.OK() {
		entry.WithFields(log.Fields{"status": attempt.Status, "response": attempt.Text()}).Warn("Upstream responded with failure")
	}
	return attempt
}

func transportFailure(attempt Attempt, err error) Attempt {
	attempt.Status = http.StatusInternalServerError
	attempt.Body = []byte(err.Error())
	attempt.Err = err
	return attempt
}
