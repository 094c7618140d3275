package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/jpillora/backoff"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultHTTPClientTimeout = 10 * time.Minute

func newConfiguredBaseTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig:     &tls.Config{},
		Proxy:               http.ProxyFromEnvironment,
		DisableCompression:  false,
		DisableKeepAlives:   true,
		IdleConnTimeout:     20 * time.Second,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        50,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 0,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient returns a client for downloading archives. A zero timeout uses
// the default. Requests made with the client are traced.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPClientTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(newConfiguredBaseTransport()),
	}
}

// HTTPRetryConfiguration describes when a retryable client retries a request.
type HTTPRetryConfiguration struct {
	MaxDelay        time.Duration
	BaseDelay       time.Duration
	MaxRetries      int
	TemporaryErrors bool
	Methods         []string
	Statuses        []int
}

// NewDefaultHTTPRetryConf returns a configuration that retries downloads on
// transient server errors. MaxRetries is left at zero, so callers must opt in
// to retries explicitly.
func NewDefaultHTTPRetryConf() HTTPRetryConfiguration {
	return HTTPRetryConfiguration{
		TemporaryErrors: true,
		MaxDelay:        20 * time.Second,
		BaseDelay:       500 * time.Millisecond,
		Methods: []string{
			http.MethodGet,
			http.MethodHead,
		},
		Statuses: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			http.StatusTooManyRequests,
			http.StatusRequestTimeout,
		},
	}
}

// GetHTTPRetryableClient wraps the client's transport so that requests are
// retried according to the configuration. With MaxRetries <= 0 the client is
// returned unchanged.
func GetHTTPRetryableClient(client *http.Client, conf HTTPRetryConfiguration) *http.Client {
	if conf.MaxRetries <= 0 {
		return client
	}

	statusRetries := []rehttp.RetryFn{}
	if len(conf.Statuses) > 0 {
		statusRetries = append(statusRetries, rehttp.RetryStatuses(conf.Statuses...))
	} else {
		conf.TemporaryErrors = true
	}

	if conf.TemporaryErrors {
		statusRetries = append(statusRetries, rehttp.RetryTemporaryErr())
	}

	retryFns := []rehttp.RetryFn{
		rehttp.RetryAny(statusRetries...),
		rehttp.RetryMaxRetries(conf.MaxRetries),
	}

	if len(conf.Methods) > 0 {
		retryFns = append(retryFns, rehttp.RetryHTTPMethods(conf.Methods...))
	}

	transport := client.Transport
	if transport == nil {
		transport = newConfiguredBaseTransport()
	}
	client.Transport = rehttp.NewTransport(transport,
		rehttp.RetryAll(retryFns...),
		backoffDelay(conf.BaseDelay, conf.MaxDelay))

	return client
}

func backoffDelay(base, max time.Duration) rehttp.DelayFn {
	b := &backoff.Backoff{
		Min:    base,
		Max:    max,
		Factor: 2,
		Jitter: true,
	}
	return func(attempt rehttp.Attempt) time.Duration {
		return b.ForAttempt(float64(attempt.Index))
	}
}
