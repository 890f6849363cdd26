package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Option tunes the underlying *http.Client.
type Option func(*clientConfig)

type clientConfig struct {
	connTimeout           time.Duration
	requestTimeout        time.Duration
	keepAlive             time.Duration
	idleConnTimeout       time.Duration
	responseHeaderTimeout time.Duration
	authToken             string
	logRequests           bool
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		connTimeout:           30 * time.Second,
		requestTimeout:        30 * time.Second,
		keepAlive:             90 * time.Second,
		idleConnTimeout:       90 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
	}
}

func WithConnTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.connTimeout = d }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.requestTimeout = d }
}

func WithKeepAlive(d time.Duration) Option {
	return func(c *clientConfig) { c.keepAlive = d }
}

func WithIdleConnTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.idleConnTimeout = d }
}

func WithResponseHeaderTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.responseHeaderTimeout = d }
}

// WithAuthToken sends Authorization: Bearer on every request when the
// token is non-empty.
func WithAuthToken(token string) Option {
	return func(c *clientConfig) { c.authToken = token }
}

// WithRequestLogging logs outbound requests at debug level through
// the context logger.
func WithRequestLogging() Option {
	return func(c *clientConfig) { c.logRequests = true }
}

func newClient(cfg *clientConfig) *http.Client {
	dialer := net.Dialer{
		Timeout:   cfg.connTimeout,
		KeepAlive: cfg.keepAlive,
	}

	var rt http.RoundTripper = &http.Transport{
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       cfg.idleConnTimeout,
		ResponseHeaderTimeout: cfg.responseHeaderTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
	}
	rt = &decoratedTransport{cfg: cfg, next: rt}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: rt,
	}
}

// decoratedTransport applies auth and request logging around the base
// transport.
type decoratedTransport struct {
	cfg  *clientConfig
	next http.RoundTripper
}

func (t *decoratedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if t.cfg.authToken != "" {
		out.Header.Set("Authorization", "Bearer "+t.cfg.authToken)
	}
	if t.cfg.logRequests {
		ctxzap.Debug(req.Context(), "HTTP outbound request",
			zap.String("method", out.Method),
			zap.String("url", out.URL.String()),
		)
	}
	return t.next.RoundTrip(out)
}
