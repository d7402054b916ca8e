package transport

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FixedPolicy retries after the same delay every time.
func FixedPolicy(delay time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(delay)
}

// BackoffPolicy retries with capped exponential backoff and ±20% jitter.
// It never gives up; the owning view's teardown is the only stop signal.
func BackoffPolicy(initial, max time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Endpoint derives the live channel URL from the API base URL and the
// session token: http → ws, https → wss, path + "/ws/{token}".
func Endpoint(apiBaseURL, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("live channel requires a session token")
	}
	u, err := url.Parse(apiBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid API base URL %q: %w", apiBaseURL, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + token
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
