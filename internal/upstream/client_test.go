package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestGetJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ip":"1.2.3.4"}`))
	}))
	defer server.Close()

	var out struct {
		IP string `json:"ip"`
	}
	c := NewClient(5*time.Second, testLogger)
	require.NoError(t, c.GetJSON(context.Background(), "test", server.URL, &out))
	assert.Equal(t, "1.2.3.4", out.IP)
}

func TestGetJSONRemoteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("try later"))
	}))
	defer server.Close()

	var out map[string]any
	err := NewClient(5*time.Second, testLogger).GetJSON(context.Background(), "test", server.URL, &out)
	require.Error(t, err)

	var statusErr *RemoteStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "try later", statusErr.Body)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Contains(t, err.Error(), "status code 503")
}

func TestGetJSONMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	var out map[string]any
	err := NewClient(5*time.Second, testLogger).GetJSON(context.Background(), "test", server.URL, &out)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.False(t, IsTransport(err))
}

func TestGetJSONTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var out map[string]any
	err := NewClient(5*time.Second, testLogger).GetJSON(context.Background(), "test", url, &out)
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, url, transportErr.URL)
	assert.Nil(t, out)
}

func TestGetJSONContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	err := NewClient(5*time.Second, testLogger).GetJSON(ctx, "test", server.URL, &out)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestGetTextBodyLimit verifies that oversized responses return an error
// instead of consuming unbounded memory.
func TestGetTextBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("A", 256*1024)
		for i := 0; i < 6; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	called := false
	err := NewClient(5*time.Second, testLogger).GetText(context.Background(), "test", server.URL, func([]byte) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "byte limit")
}

func TestGetTextParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		w.Write([]byte("No GP data found"))
	}))
	defer server.Close()

	var got string
	err := NewClient(5*time.Second, testLogger).GetText(context.Background(), "text-parse", server.URL, func(body []byte) error {
		got = string(body)
		return errors.New("no entries")
	})
	require.Error(t, err)
	assert.Equal(t, "No GP data found", got)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, 1.0, upstreamCount(t, "text-parse", "malformed"))
}

func TestGetJSONTrailingData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"1.2.3.4"} <html>oops</html>`))
	}))
	defer server.Close()

	var out struct {
		IP string `json:"ip"`
	}
	err := NewClient(5*time.Second, testLogger).GetJSON(context.Background(), "test", server.URL, &out)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

type checkedBody struct {
	OK bool `json:"ok"`
}

func (b *checkedBody) Validate() error {
	if !b.OK {
		return &UpstreamRejectedError{Service: "checked", Message: "not ok"}
	}
	return nil
}

func TestGetJSONValidatorOutcome(t *testing.T) {
	tests := []struct {
		name    string
		service string
		body    string
		outcome string
	}{
		{"accepted", "checked-ok", `{"ok":true}`, "ok"},
		{"rejected", "checked-rejected", `{"ok":false}`, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var out checkedBody
			err := NewClient(5*time.Second, testLogger).GetJSON(context.Background(), tt.service, server.URL, &out)
			assert.Equal(t, tt.outcome, Outcome(err))
			assert.Equal(t, 1.0, upstreamCount(t, tt.service, tt.outcome))
			if tt.outcome == "rejected" {
				assert.Equal(t, 0.0, upstreamCount(t, tt.service, "ok"))
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "rejected", Outcome(&UpstreamRejectedError{Service: "geo", Message: "Invalid IP address"}))
	assert.Equal(t, "transport", Outcome(&TransportError{Err: io.EOF}))
	assert.Equal(t, "status", Outcome(&RemoteStatusError{StatusCode: 500}))
	assert.Equal(t, "malformed", Outcome(&MalformedResponseError{Err: io.EOF}))
	assert.Equal(t, "error", Outcome(io.EOF))
}

// upstreamCount reads iss_spotter_upstream_requests_total for one label pair
// from the default registry.
func upstreamCount(t *testing.T, service, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "iss_spotter_upstream_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["service"] == service && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
