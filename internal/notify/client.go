package notify

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// breakerClient is the HTTP client of one provider channel. Requests are
// attempted once; repeated provider failures open the breaker so further
// sends fail fast until it half-opens again.
type breakerClient struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerClient(name string, timeout time.Duration) *breakerClient {
	return &breakerClient{
		http: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
}

// do sends req and drains the response. Any non-2xx status is an error.
func (c *breakerClient) do(req *http.Request) error {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= http.StatusInternalServerError || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return nil, fmt.Errorf("%s returned %d", req.URL.Host, r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", req.URL.Host, resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
