package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// maxRetryAttempts bounds retries for transient provider failures.
const maxRetryAttempts = 3

// doWithRetry executes an HTTP request, retrying 429s and 5xx responses
// with exponential backoff. The request body is replayed on each attempt.
func doWithRetry(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body []byte) ([]byte, string, error) {
	backoff := retry.WithMaxRetries(maxRetryAttempts, retry.NewExponential(500*time.Millisecond))

	var respBody []byte
	var contentType string

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response body: %w", err))
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			respBody = data
			contentType = resp.Header.Get("Content-Type")
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200)))
		default:
			return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
		}
	})
	if err != nil {
		return nil, "", err
	}
	return respBody, contentType, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
