// Package activity is the HTTP client for the remote activity service: quiz
// definitions, instance deployment and result submissions.
package activity

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/mind-engage/mindengage-quiz/internal/upstream"
)

const DefaultBaseURL = "http://localhost:5000/api/activity"

var ErrNotFound = upstream.ErrNotFound

// StatusError is returned for any non-2xx response other than 404.
type StatusError = upstream.StatusError

// Observer receives the outcome of every call.
type Observer = upstream.Observer

type Config struct {
	BaseURL string
	Timeout time.Duration

	// Client-credentials auth is enabled when TokenURL and ClientID are set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// RatePerSecond <= 0 disables client-side limiting.
	RatePerSecond float64
	Burst         int

	Observer   Observer
	HTTPClient *http.Client // overrides the oauth2 client, for tests
}

type Client struct {
	tr upstream.JSON
}

func New(cfg Config) *Client {
	h := cfg.HTTPClient
	if h == nil {
		if cfg.TokenURL != "" && cfg.ClientID != "" {
			cc := clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
				Scopes:       cfg.Scopes,
			}
			h = cc.Client(context.Background())
		} else {
			h = &http.Client{}
		}
		if cfg.Timeout > 0 {
			h.Timeout = cfg.Timeout
		}
	}

	c := &Client{tr: upstream.JSON{
		Service:  "activity",
		Base:     upstream.TrimBase(cfg.BaseURL, DefaultBaseURL),
		HTTP:     h,
		Observer: cfg.Observer,
	}}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.tr.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	return c.tr.Do(ctx, op, method, path, in, out)
}

func esc(s string) string { return url.PathEscape(s) }
