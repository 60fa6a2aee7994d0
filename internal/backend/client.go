// Package backend is the typed client for the social backend's JSON API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"friendfeed/internal/models"
	"friendfeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxBodyBytes = 4 << 20

// TransportError is a request that could not be completed or came back with a non-2xx status.
type TransportError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorCode makes transport failures answer as an unavailable backend.
func (e *TransportError) ErrorCode() string { return models.CodeBackendUnavailable }

// Message returns the user-facing message carried by err, or fallback.
func Message(err error, fallback string) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeBackendRejected && appErr.Message != "" {
		return appErr.Message
	}
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return fallback
}

// IsUnauthorized reports whether the backend refused the call for lack of a session.
func IsUnauthorized(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == http.StatusUnauthorized
}

// Credentials identify the browser user towards the backend.
type Credentials struct {
	SessionToken string
	Username     string
}

// Client talks to the backend API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	log        *observability.BackendLogger
}

// NewClient creates a client for baseURL. cookieName is the backend's session cookie.
func NewClient(baseURL string, timeout time.Duration, cookieName string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: timeout},
		log:        observability.NewBackendLogger(),
	}
}

// As returns a Caller that performs requests on behalf of one browser session.
func (c *Client) As(creds Credentials) *Caller {
	return &Caller{client: c, creds: creds}
}

// Caller is a Client bound to one user's credentials.
type Caller struct {
	client *Client
	creds  Credentials
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
}

type ack struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do performs one request and returns the raw 2xx body. Any {success:false} envelope
// becomes a BACKEND_REJECTED AppError regardless of status.
func (p *Caller) do(ctx context.Context, cl call) ([]byte, error) {
	start := time.Now()
	span, ctx := observability.NewSpan(ctx, "backend "+cl.method+" "+cl.path,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.AddAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("http.route", cl.path),
	)

	body, status, err := p.roundTrip(ctx, cl)
	outcome := "ok"
	defer func() { observability.ObserveBackendCall(cl.method, cl.path, outcome, start) }()

	if err != nil {
		outcome = "transport_error"
		span.SetError(err)
		p.client.log.LogError(ctx, cl.method, cl.path, err)
		return nil, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}
	span.AddAttributes(attribute.Int("http.status_code", status))
	p.client.log.LogCall(ctx, cl.method, cl.path, status, time.Since(start))

	var env ack
	isJSON := json.Unmarshal(body, &env) == nil
	if isJSON && env.Success != nil && !*env.Success {
		outcome = "rejected"
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		rejected := models.NewBackendRejectedError(msg)
		if status >= 300 {
			rejected.Err = &TransportError{Method: cl.method, Path: cl.path, Status: status, Message: msg}
		}
		span.SetError(rejected)
		return nil, rejected
	}

	if status < 200 || status >= 300 {
		outcome = "status_error"
		te := &TransportError{Method: cl.method, Path: cl.path, Status: status}
		switch {
		case isJSON && env.Message != "":
			te.Message = env.Message
		case isJSON && env.Error != "":
			te.Message = env.Error
		case !isJSON:
			te.Message = truncate(strings.TrimSpace(string(body)), 200)
		}
		span.SetError(te)
		p.client.log.LogError(ctx, cl.method, cl.path, te)
		return nil, te
	}

	return body, nil
}

func (p *Caller) roundTrip(ctx context.Context, cl call) ([]byte, int, error) {
	target := p.client.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.creds.SessionToken != "" && p.client.cookieName != "" {
		req.AddCookie(&http.Cookie{Name: p.client.cookieName, Value: p.creds.SessionToken})
	}
	if p.creds.Username != "" {
		req.AddCookie(&http.Cookie{Name: "username", Value: p.creds.Username})
	}
	observability.InjectHeaders(ctx, req.Header)

	resp, err := p.client.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (p *Caller) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := p.do(ctx, call{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
