package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// StatusError reports a response whose status code is not 2xx/3xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Doer is the subset of *http.Client used by Issuer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Issuer performs one HTTP call per Issue and reports it as a metrics.Outcome.
type Issuer struct {
	client   Doer
	builder  *RequestBuilder
	tracing  *tracing.Provider
	logger   *zap.Logger
	logEvery *rate.Sometimes
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithTracing wraps every request in a client span and, when the provider asks
// for it, injects W3C trace headers.
func WithTracing(p *tracing.Provider) IssuerOption {
	return func(i *Issuer) {
		if p.Enabled() {
			i.tracing = p
		}
	}
}

// WithFailureLogging logs failed requests, at most once per interval.
func WithFailureLogging(logger *zap.Logger, interval time.Duration) IssuerOption {
	return func(i *Issuer) {
		if logger == nil {
			return
		}
		i.logger = logger
		i.logEvery = &rate.Sometimes{Interval: interval}
	}
}

func NewIssuer(client Doer, builder *RequestBuilder, opts ...IssuerOption) *Issuer {
	i := &Issuer{client: client, builder: builder}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue sends one request. It never panics on request failures and never
// returns an error: every failure is captured in the outcome.
func (i *Issuer) Issue(ctx context.Context) metrics.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	var span tracing.RequestSpan
	if i.tracing != nil && i.builder != nil {
		ctx, span = i.tracing.StartRequest(ctx, i.builder.Method(), i.builder.Target())
	}

	outcome := i.do(ctx)
	span.End(outcome.StatusCode, string(outcome.Kind), outcome.Err)

	if !outcome.Succeeded && i.logger != nil {
		i.logEvery.Do(func() {
			i.logger.Warn("request failed",
				zap.String("kind", string(outcome.Kind)),
				zap.Int("status", outcome.StatusCode),
				zap.Duration("latency", outcome.Latency),
				zap.Error(outcome.Err),
			)
		})
	}
	return outcome
}

func (i *Issuer) do(ctx context.Context) metrics.Outcome {
	start := time.Now()
	if i.builder == nil || i.client == nil {
		return metrics.Failure(start, time.Since(start), metrics.ErrorKindRequest, 0, errors.New("issuer is not configured"))
	}

	req, err := i.builder.Build(ctx)
	if err != nil {
		return metrics.Failure(start, time.Since(start), metrics.ErrorKindRequest, 0, err)
	}
	i.tracing.Inject(ctx, req.Header)

	start = time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		return metrics.Failure(start, time.Since(start), ClassifyError(err), 0, err)
	}
	defer resp.Body.Close()

	var snippet []byte
	failed := resp.StatusCode < 200 || resp.StatusCode >= 400
	if failed {
		snippet, err = io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	}
	if err == nil {
		_, err = io.Copy(io.Discard, resp.Body)
	}
	latency := time.Since(start)
	if err != nil {
		return metrics.Failure(start, latency, ClassifyError(err), resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if failed {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		return metrics.Failure(start, latency, metrics.ErrorKindStatus, resp.StatusCode, statusErr)
	}
	return metrics.Success(start, latency, resp.StatusCode)
}

// ClassifyError maps a transport error to an ErrorKind.
func ClassifyError(err error) metrics.ErrorKind {
	if err == nil {
		return metrics.ErrorKindNone
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return metrics.ErrorKindStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return metrics.ErrorKindCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.ErrorKindTimeout
	}
	return metrics.ErrorKindConnection
}
