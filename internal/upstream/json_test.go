package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	service, op string
	status      int
}

type recorder struct{ calls []call }

func (r *recorder) ObserveUpstream(service, op string, status int, _ time.Duration) {
	r.calls = append(r.calls, call{service, op, status})
}

func TestJSON_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/base/echo":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			_ = json.NewEncoder(w).Encode(in)
		case "/base/missing":
			http.NotFound(w, r)
		default:
			http.Error(w, " overloaded ", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	rec := &recorder{}
	j := &JSON{Service: "svc", Base: TrimBase(srv.URL+"/base/", ""), HTTP: srv.Client(), Observer: rec}

	var out map[string]any
	require.NoError(t, j.Do(context.Background(), "echo", http.MethodPost, "/echo", map[string]any{"a": 1.0}, &out))
	assert.Equal(t, 1.0, out["a"])

	err := j.Do(context.Background(), "missing", http.MethodGet, "/missing", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = j.Do(context.Background(), "busy", http.MethodGet, "/busy", nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "svc busy", se.Op)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, "overloaded", se.Body)

	assert.Equal(t, []call{{"svc", "echo", 200}, {"svc", "missing", 404}, {"svc", "busy", 503}}, rec.calls)
}

func TestJSON_TransportErrorObservesZero(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	rec := &recorder{}
	j := &JSON{Service: "svc", Base: base, HTTP: &http.Client{Timeout: time.Second}, Observer: rec}
	require.Error(t, j.Do(context.Background(), "down", http.MethodGet, "/", nil, nil))
	assert.Equal(t, []call{{"svc", "down", 0}}, rec.calls)
}

func TestTrimBase(t *testing.T) {
	assert.Equal(t, "http://x/api", TrimBase("http://x/api//", "d"))
	assert.Equal(t, "d", TrimBase("", "d"))
}
