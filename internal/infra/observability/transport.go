package observability

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// LoggingTransport logs outgoing requests with zap.
// Uses Warn for 4xx, Error for 5xx and transport failures, Debug otherwise.
// The Authorization header is never logged.
func LoggingTransport(next http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Bool("authenticated", r.Header.Get("Authorization") != ""),
		}

		if err != nil {
			logger.Error("http request failed", append(fields, zap.Error(err))...)
			return nil, err
		}

		fields = append(fields, zap.Int("status", resp.StatusCode))
		switch {
		case resp.StatusCode >= 500:
			logger.Error("http request", fields...)
		case resp.StatusCode >= 400:
			logger.Warn("http request", fields...)
		default:
			logger.Debug("http request", fields...)
		}
		return resp, nil
	})
}

// TracingTransport injects the trace context of the request's context into
// the outgoing headers.
func TracingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		propagator = propagation.TraceContext{}
	}

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r = r.Clone(r.Context())
		propagator.Inject(r.Context(), propagation.HeaderCarrier(r.Header))
		return next.RoundTrip(r)
	})
}
