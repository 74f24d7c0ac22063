// Package gsclient talks to the game-session service that hosts interactive
// games.
package gsclient

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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/telemetry"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrUnreachable wraps transport failures talking to the session service.
var ErrUnreachable = errors.New("game session service unreachable")

// StatusError is returned when the session service answers with a non-2xx
// status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("game session service returned %d: %s", e.Status, e.Body)
}

// InitiateRequest is the envelope posted to the session service. Value is
// passed through untouched.
type InitiateRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// New creates a client for the session service at baseURL. A nil httpClient
// gets a client with a 10s timeout.
func New(baseURL string, httpClient *http.Client, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log.WithField("component", "gsclient"),
	}
}

// InitiateSession hands a freshly keyed session to the session service.
func (c *Client) InitiateSession(ctx context.Context, kind games.Kind, key string, value json.RawMessage) (err error) {
	ctx, span := telemetry.StartGameSpan(ctx, "gsclient", "InitiateSession", kind.String(),
		attribute.String("session.key", key))
	defer func() { telemetry.EndSpan(span, err) }()

	body, err := json.Marshal(InitiateRequest{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("encode session envelope: %w", err)
	}

	url := fmt.Sprintf("%s/session/initiate/%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err = c.do(req); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "key": key}).Warn("initiate session failed")
		return err
	}
	return nil
}

// Health reports whether the session service answers GET /health with 2xx.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	if err := c.do(req); err != nil {
		c.log.WithError(err).Debug("session service health check failed")
		return false
	}
	return true
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Status: resp.StatusCode, Body: string(raw)}
}
