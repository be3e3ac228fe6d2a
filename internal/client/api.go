package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/joshua-takyi/whosin/internal/models"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxTries = 3

	maxResponseBytes = 1 << 20
)

// ErrNetworkFailure reports a transient failure that outlived the retries.
var ErrNetworkFailure = errors.New("network failure")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status back onto the domain errors so callers can use
// errors.Is on either side of the wire.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError:
		return ErrNetworkFailure
	case e.Status == http.StatusForbidden:
		return models.ErrSelfRSVPForbidden
	case e.Status == http.StatusNotFound:
		return models.ErrEventNotFound
	case e.Status == http.StatusGone:
		return models.ErrLinkExpired
	case e.Status == http.StatusBadRequest:
		return models.ErrInvalidPayload
	case e.Status == http.StatusUnauthorized:
		switch e.Message {
		case models.ErrStaleTimestamp.Error():
			return models.ErrStaleTimestamp
		case models.ErrVoterTokenInvalid.Error():
			return models.ErrVoterTokenInvalid
		}
		return models.ErrInvalidSignature
	}
	return nil
}

func (e *APIError) transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

type ClientOption func(*APIClient)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *APIClient) { c.http = hc }
}

func WithMaxTries(n uint) ClientOption {
	return func(c *APIClient) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay; later delays grow
// exponentially from it.
func WithInitialBackoff(d time.Duration) ClientOption {
	return func(c *APIClient) { c.initialBackoff = d }
}

// APIClient talks to the /api/v1 HTTP surface.
type APIClient struct {
	baseURL        string
	http           *http.Client
	maxTries       uint
	initialBackoff time.Duration
}

func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: DefaultTimeout},
		maxTries:       DefaultMaxTries,
		initialBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	EventID string          `json:"eventId"`
	Data    json.RawMessage `json:"data"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Total   int             `json:"total"`
}

func (c *APIClient) RegisterVoter(ctx context.Context, voterID string) (*models.VoterRegistration, error) {
	res, err := c.do(ctx, http.MethodPost, "/api/v1/voters", models.RegisterVoterRequest{VoterID: voterID}, "")
	if err != nil {
		return nil, err
	}
	var reg models.VoterRegistration
	if err := json.Unmarshal(res.Data, &reg); err != nil {
		return nil, fmt.Errorf("decode voter registration: %w", err)
	}
	return &reg, nil
}

func (c *APIClient) CreateEvent(ctx context.Context, env models.EventEnvelope) (*models.Event, error) {
	// the server assigns event IDs, so a retried create after a lost
	// response would store a second event
	res, err := c.send(ctx, http.MethodPost, "/api/v1/events", env, "", 1)
	if err != nil {
		return nil, err
	}
	var event models.Event
	if err := json.Unmarshal(res.Data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

func (c *APIClient) GetEvent(ctx context.Context, id string) (*models.EventView, error) {
	res, err := c.do(ctx, http.MethodGet, "/api/v1/events/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	var view models.EventView
	if err := json.Unmarshal(res.Data, &view); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if view.Event == nil {
		return nil, fmt.Errorf("decode event: missing event")
	}
	return &view, nil
}

// ListEvents returns one page of public events and the total count.
func (c *APIClient) ListEvents(ctx context.Context, page, limit int) ([]*models.Event, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	res, err := c.do(ctx, http.MethodGet, "/api/v1/events?"+q.Encode(), nil, "")
	if err != nil {
		return nil, 0, err
	}
	var events []*models.Event
	if err := json.Unmarshal(res.Data, &events); err != nil {
		return nil, 0, fmt.Errorf("decode events: %w", err)
	}
	return events, res.Total, nil
}

func (c *APIClient) SubmitRSVP(ctx context.Context, env models.VoteEnvelope, token string) ([]models.Attendee, error) {
	res, err := c.do(ctx, http.MethodPost, "/api/v1/rsvp", env, token)
	if err != nil {
		return nil, err
	}
	var data struct {
		Attendees []models.Attendee `json:"attendees"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return nil, fmt.Errorf("decode rsvp response: %w", err)
	}
	return data.Attendees, nil
}

// do sends an idempotent request with bounded retries. Network errors, 429
// and 5xx are retried; every other status is final.
func (c *APIClient) do(ctx context.Context, method, path string, body any, token string) (*envelope, error) {
	return c.send(ctx, method, path, body, token, c.maxTries)
}

func (c *APIClient) send(ctx context.Context, method, path string, body any, token string, tries uint) (*envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	operation := func() (*envelope, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		var env envelope
		decodeErr := json.Unmarshal(raw, &env)

		if resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode, Message: env.Error}
			if apiErr.Message == "" && decodeErr != nil {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
			if apiErr.transient() {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		if decodeErr != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode response: %w", decodeErr))
		}
		return &env, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(tries),
	)
	if err == nil {
		return res, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil, apiErr
	}
	return nil, err
}
