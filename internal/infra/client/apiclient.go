// Package client is the single HTTP gateway to the CRM backend.
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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/infra/observability"
	"github.com/martiniano/crm-console/internal/infra/resilience"
	"github.com/martiniano/crm-console/internal/port"
)

var tracer = otel.Tracer("client")

const (
	apiPrefix       = "/api/v1"
	maxResponseBody = 4 << 20
)

// Call describes one request against the API.
type Call struct {
	Op     string // metric/span name, e.g. "leads.list"
	Method string
	Path   string // relative to /api/v1, e.g. "/leads/7"
	Query  url.Values
	Body   any
}

// SessionListener is notified synchronously when the backend answers 401.
type SessionListener func(domain.SessionInvalidated)

// APIClient performs JSON calls against the backend, attaching the bearer
// token and mapping every failure onto the domain error taxonomy.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	tokens    port.TokenSource
	listeners []SessionListener
}

// NewAPIClient creates a new APIClient. baseURL is the server root; the
// /api/v1 prefix is appended here.
func NewAPIClient(httpClient *http.Client, baseURL string, bs resilience.BreakerSettings, metrics *observability.Metrics, logger *zap.Logger) *APIClient {
	bs.IsSuccessful = countsAsSuccess
	bs.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/") + apiPrefix,
		cb:         resilience.NewCircuitBreaker("crm-api", bs),
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// SetTokenSource sets where the bearer token is read from on every call.
func (c *APIClient) SetTokenSource(ts port.TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnSessionInvalidated registers a listener for 401 responses.
func (c *APIClient) OnSessionInvalidated(l SessionListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// BreakerState reports the circuit breaker state.
func (c *APIClient) BreakerState() gobreaker.State {
	return c.cb.State()
}

// Do executes call and decodes a 2xx JSON body into out (which may be nil).
// Errors are always one of the domain taxonomy types.
func (c *APIClient) Do(ctx context.Context, call Call, out any) error {
	ctx, span := tracer.Start(ctx, "APIClient."+call.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", call.Method),
			attribute.String("http.path", call.Path),
		),
	)
	defer span.End()

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, call, out)
	})
	c.metrics.RecordRequestDuration(call.Op, time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &domain.ErrUnreachable{Cause: err}
		}
		kind := domain.KindOf(err)
		c.metrics.IncrRequest("error")
		c.metrics.IncrRequestError(kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		c.logger.Debug("api call failed",
			zap.String("op", call.Op),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return err
	}

	c.metrics.IncrRequest("success")
	return nil
}

func (c *APIClient) roundTrip(ctx context.Context, call Call, out any) error {
	req, err := c.newRequest(ctx, call)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrUnreachable{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &domain.ErrUnreachable{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(call, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &domain.ErrServer{Status: resp.StatusCode, Message: domain.MsgUnexpectedResponse}
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("undecodable response body",
			zap.String("op", call.Op),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return &domain.ErrServer{Status: resp.StatusCode, Message: domain.MsgUnexpectedResponse}
	}
	return nil
}

func (c *APIClient) newRequest(ctx context.Context, call Call) (*http.Request, error) {
	target := c.baseURL + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var reader io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", call.Op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", call.Op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *APIClient) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

// errorBody is the union of the error envelopes the backend sends.
type errorBody struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Fields  map[string]any `json:"fields"`
	Errors  map[string]any `json:"errors"`
}

func (c *APIClient) classify(call Call, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	switch {
	case status == http.StatusUnauthorized:
		c.invalidate(call, status)
		return &domain.ErrUnauthorized{Message: eb.Message}

	case status == http.StatusBadRequest && (len(eb.Fields) > 0 || len(eb.Errors) > 0):
		fields := make(map[string]string, len(eb.Fields)+len(eb.Errors))
		for k, v := range eb.Errors {
			fields[k] = fmt.Sprint(v)
		}
		for k, v := range eb.Fields {
			fields[k] = fmt.Sprint(v)
		}
		return &domain.ErrValidationRejected{Fields: fields}

	default:
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		return &domain.ErrServer{Status: status, Message: msg}
	}
}

func (c *APIClient) invalidate(call Call, status int) {
	c.mu.RLock()
	listeners := append([]SessionListener(nil), c.listeners...)
	c.mu.RUnlock()

	c.metrics.IncrSessionInvalidation()
	c.logger.Warn("session invalidated by backend",
		zap.String("op", call.Op),
		zap.String("path", call.Path),
	)

	ev := domain.SessionInvalidated{Op: call.Op, Path: call.Path, Status: status, At: c.now()}
	for _, l := range listeners {
		l(ev)
	}
}

// countsAsSuccess keeps everything except transport failures and 5xx out of
// the breaker's failure count. Cancelled requests do not count either.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var server *domain.ErrServer
	if errors.As(err, &server) {
		return server.Status < 500
	}
	var unreachable *domain.ErrUnreachable
	return !errors.As(err, &unreachable)
}
