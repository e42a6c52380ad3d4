// Package notifier publishes offers to chat channels.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/pauljones0/offers-bot/internal/util"
)

const maxResponseBody = 1 << 20

type httpSender struct {
	client      *http.Client
	rateLimiter *rate.Limiter
	retry       util.RetryPolicy
}

func newHTTPSender(every time.Duration) httpSender {
	return httpSender{
		client:      &http.Client{Timeout: 15 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Every(every), 1),
		retry:       util.DefaultRetryPolicy,
	}
}

// postJSON sends payload and returns the 2xx response body. 429 and 5xx are retried.
func (s *httpSender) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var out []byte
	err = util.RetryWithBackoff(ctx, s.retry, func(attempt int) error {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			out = data
			return nil
		}

		statusErr := fmt.Errorf("status: %s, body: %s", resp.Status, string(data))
		wait := retryBackoff(resp, attempt)
		switch {
		case wait == 0:
			return util.Permanent(statusErr)
		case resp.StatusCode == http.StatusTooManyRequests:
			if d := bodyRetryAfter(data); d > 0 && resp.Header.Get("Retry-After") == "" {
				wait = d
			}
			return util.RetryAfter(statusErr, wait)
		default:
			return statusErr
		}
	})
	return out, err
}

// retryBackoff returns how long to wait before retrying resp, or 0 when the
// status is not retryable.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		return time.Second << attempt
	case resp.StatusCode >= 500:
		return time.Second << attempt
	default:
		return 0
	}
}

// bodyRetryAfter reads the retry hint both chat APIs put in 429 bodies.
func bodyRetryAfter(body []byte) time.Duration {
	for _, path := range []string{"parameters.retry_after", "retry_after"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Float() > 0 {
			return time.Duration(v.Float() * float64(time.Second))
		}
	}
	return 0
}
