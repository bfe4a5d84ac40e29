package httpclient

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"mascot-factory/internal/metrics"
)

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	// Uncounted skips metrics.ProviderCallTotal, for traffic that is not a
	// generation provider.
	Uncounted bool
	// Base overrides the dialing transport; used by tests.
	Base http.RoundTripper
}

// New returns a client tuned for long image-generation calls. Outbound calls
// are counted in metrics.ProviderCallTotal unless Uncounted is set.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	base := opts.Base
	if base == nil {
		base = newTransport(opts.PreferIPv4)
	}

	if !opts.Uncounted {
		base = &countingTransport{next: base}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: base,
	}
}

func newTransport(preferIPv4 bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if preferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
		// image models routinely take over a minute before the first byte
		ResponseHeaderTimeout: 150 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

type countingTransport struct {
	next http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.ProviderCallTotal.WithLabelValues(req.URL.Host, status).Inc()
	return resp, err
}
