package prober

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeChecker struct {
	calls atomic.Int32
	err   error
}

func (f *fakeChecker) Check(context.Context, string) error {
	f.calls.Add(1)
	return f.err
}

func TestNew_Targets(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		want   string
		method Method
	}{
		{"bare host gets https", Options{Target: "baidu.com"}, "https://baidu.com", MethodHTTP},
		{"explicit scheme kept", Options{Target: "http://example.com/ok", Method: MethodHTTP}, "http://example.com/ok", MethodHTTP},
		{"icmp strips scheme and path", Options{Target: "https://example.com/x?y", Method: MethodICMP}, "example.com", MethodICMP},
		{"icmp plain host", Options{Target: "1.1.1.1", Method: MethodICMP}, "1.1.1.1", MethodICMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Target())
			assert.Equal(t, tt.method, p.Method())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Target: "example.com", Method: "smoke"}, nil)
	assert.Error(t, err)

	_, err = New(Options{Target: "  "}, nil)
	assert.Error(t, err)
}

func TestProber_HTTPSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p, err := New(Options{Target: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := p.Probe(context.Background())
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.False(t, result.Time.IsZero())
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
	assert.Equal(t, result, p.Last())
}

func TestProber_HTTPFailureRecordsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, err := New(Options{Target: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := p.Probe(context.Background())
	assert.False(t, result.Success)
	assert.Equal(t, "HTTP 503 Service Unavailable", result.Error)
}

func TestProber_ConnectionRefused(t *testing.T) {
	p, err := New(Options{Target: "http://127.0.0.1:1", Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := p.Probe(context.Background())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestProber_ErrorOverwrittenBySuccess(t *testing.T) {
	checker := &fakeChecker{err: errors.New("dial tcp: timeout")}
	p := NewWithChecker("https://example.com", MethodHTTP, checker, 0, zaptest.NewLogger(t))

	assert.Equal(t, "dial tcp: timeout", p.Probe(context.Background()).Error)

	checker.err = nil
	result := p.Probe(context.Background())
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestProber_UpdateThrottled(t *testing.T) {
	checker := &fakeChecker{}
	p := NewWithChecker("https://example.com", MethodHTTP, checker, time.Minute, zaptest.NewLogger(t))

	first := p.Update(context.Background())
	second := p.Update(context.Background())

	assert.EqualValues(t, 1, checker.calls.Load())
	assert.Equal(t, first, second)
}

func TestProber_UpdateEarlyTick(t *testing.T) {
	checker := &fakeChecker{}
	p := NewWithChecker("https://example.com", MethodHTTP, checker, time.Minute, zaptest.NewLogger(t))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Update(context.Background())
	now = now.Add(time.Minute - 2*time.Second)
	p.Update(context.Background())

	assert.EqualValues(t, 2, checker.calls.Load())
}

func TestHTTPChecker_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewHTTPChecker(30*time.Second).Check(ctx, server.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPChecker_InvalidURL(t *testing.T) {
	err := NewHTTPChecker(time.Second).Check(context.Background(), "://invalid")
	assert.Error(t, err)
}
