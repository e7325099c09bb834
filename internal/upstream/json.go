// Package upstream is the JSON-over-HTTP transport shared by the activity and
// analytics clients.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("upstream: not found")

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

// Observer receives the outcome of every call. status is 0 when the request
// did not produce a response.
type Observer interface {
	ObserveUpstream(service, op string, status int, d time.Duration)
}

// JSON sends JSON requests to one service under a base URL.
type JSON struct {
	Service  string
	Base     string
	HTTP     *http.Client
	Limiter  *rate.Limiter // optional
	Observer Observer      // optional
}

// Do sends in (if non-nil) as the JSON body and decodes the response into
// out (if non-nil). 404 maps to ErrNotFound.
func (j *JSON) Do(ctx context.Context, op, method, path string, in, out any) error {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, j.Base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := j.HTTP.Do(req)
	if err != nil {
		j.observe(op, 0, start)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	j.observe(op, res.StatusCode, start)

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", j.Service, op, ErrNotFound)
	}
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{Op: j.Service + " " + op, Status: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

func (j *JSON) observe(op string, status int, start time.Time) {
	if j.Observer != nil {
		j.Observer.ObserveUpstream(j.Service, op, status, time.Since(start))
	}
}

// TrimBase strips trailing slashes and falls back to def.
func TrimBase(base, def string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return def
	}
	return base
}
