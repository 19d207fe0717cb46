package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/logging"
	"github.com/Rrens/redbot/internal/metrics"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxResponseBytes = 2 << 20
	logBodyLimit            = 512
)

// Dispatcher performs a single bounded call against a registered provider.
// Failed calls are not retried.
type Dispatcher struct {
	router   *Router
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewDispatcher creates a dispatcher over router. Zero values select defaults.
func NewDispatcher(router *Router, timeout time.Duration, maxBytes int64) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &Dispatcher{
		router:   router,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Router returns the provider router
func (d *Dispatcher) Router() *Router {
	return d.router
}

// Generate sends call to the named provider and returns its answer.
// Every failure is an *Error.
func (d *Dispatcher) Generate(ctx context.Context, providerName string, call Call) (answer string, err error) {
	name := strings.ToLower(strings.TrimSpace(providerName))

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUnexpected, Provider: name, Err: fmt.Errorf("panic: %v", r)}
		}
		result := "ok"
		if err != nil {
			result = string(KindOf(err))
		}
		metrics.ProviderCalls.WithLabelValues(name, result).Inc()
	}()

	if call.APIKey == "" {
		return "", &Error{Kind: KindMissingKey, Provider: name}
	}

	provider, ok := d.router.GetProvider(name)
	if !ok {
		return "", &Error{Kind: KindUnsupported, Provider: name}
	}
	if call.Model == "" {
		call.Model = provider.DefaultModel()
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := provider.BuildRequest(ctx, call)
	if err != nil {
		return "", &Error{Kind: KindUnexpected, Provider: name, Err: err}
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn().Str("provider", name).Str("model", call.Model).Err(scrub(err)).Msg("AI provider connection error")
		return "", &Error{Kind: KindNetwork, Provider: name, Err: scrub(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Provider: name, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := logging.Truncate(body, logBodyLimit)
		log.Warn().
			Str("provider", name).
			Str("model", call.Model).
			Int("status", resp.StatusCode).
			Str("body", snippet).
			Msg("AI provider returned error status")
		return "", &Error{Kind: KindHTTP, Provider: name, Status: resp.StatusCode, Body: snippet}
	}

	answer, err = provider.ExtractAnswer(body)
	if err != nil {
		log.Warn().
			Str("provider", name).
			Str("body", logging.Truncate(body, logBodyLimit)).
			Err(err).
			Msg("AI provider returned unreadable response")
		return "", &Error{Kind: KindMalformed, Provider: name, Err: err}
	}

	log.Debug().
		Str("provider", name).
		Str("model", call.Model).
		Dur("latency", time.Since(start)).
		Msg("AI provider answered")

	return answer, nil
}

// scrub drops the request URL from transport errors; some providers carry
// the key in the query string.
func scrub(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
