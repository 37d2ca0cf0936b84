// Package answer talks to the remote query-answering endpoint.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultEndpoint = "http://localhost:8000/query"

	maxReplyBytes = 4 << 20
)

// ErrRequestFailed matches every *RequestFailure via errors.Is.
var ErrRequestFailed = errors.New("answer request failed")

// RequestFailure covers transport errors, non-2xx statuses and malformed
// replies alike. Callers are not expected to tell them apart.
type RequestFailure struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestFailure) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestFailure) Unwrap() error { return e.Err }

func (e *RequestFailure) Is(target error) bool { return target == ErrRequestFailed }

type Request struct {
	Question string `json:"question"`
}

type Reply struct {
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer"`
	SQLQuery  string `json:"sql_query,omitempty"`
	SQLResult string `json:"sql_result,omitempty"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	newID      func() string
}

type Option func(*Client)

// WithTimeout bounds each request. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ask posts one question and decodes the reply. It never retries.
func (c *Client) Ask(ctx context.Context, question string) (Reply, error) {
	body, err := json.Marshal(Request{Question: question})
	if err != nil {
		return Reply{}, &RequestFailure{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, &RequestFailure{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.newID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, &RequestFailure{Op: "post question", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, &RequestFailure{Op: "read reply", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, &RequestFailure{
			Op:     "unexpected status",
			Status: resp.StatusCode,
			Err:    errors.New(snippet(raw)),
		}
	}

	var reply *Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Reply{}, &RequestFailure{Op: "decode reply", Status: resp.StatusCode, Err: err}
	}
	if reply == nil {
		return Reply{}, &RequestFailure{Op: "decode reply", Status: resp.StatusCode, Err: errors.New("null body")}
	}
	return *reply, nil
}

func snippet(raw []byte) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if s == "" {
		return "empty body"
	}
	if len(s) > 200 {
		return s[:197] + "..."
	}
	return s
}
