package httpclient

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mascot-factory/internal/metrics"
)

func TestNewCountsProviderCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	counter := metrics.ProviderCallTotal.WithLabelValues(u.Host, "418")
	before := testutil.ToFloat64(counter)

	client := New(Options{Timeout: 5 * time.Second, Base: http.DefaultTransport})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}

func TestUncountedClientSkipsProviderMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	counter := metrics.ProviderCallTotal.WithLabelValues(u.Host, "202")
	before := testutil.ToFloat64(counter)

	client := New(Options{Timeout: 5 * time.Second, Uncounted: true, Base: http.DefaultTransport})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(counter) - before; got != 0 {
		t.Errorf("counter delta = %v, want 0", got)
	}
	if _, ok := client.Transport.(*countingTransport); ok {
		t.Error("uncounted client still wraps countingTransport")
	}
}

func TestNewDefaultsTimeout(t *testing.T) {
	client := New(Options{})
	if client.Timeout != 180*time.Second {
		t.Errorf("Timeout = %v", client.Timeout)
	}
	if _, ok := client.Transport.(*countingTransport); !ok {
		t.Errorf("Transport = %T, want *countingTransport", client.Transport)
	}
}
