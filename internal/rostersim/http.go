package rostersim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

type submitResult int

const (
	resultSuccess submitResult = iota
	resultDuplicate
	resultFailed
)

// submitEvents posts events concurrently using a worker pool. Backpressure
// responses are retried with exponential backoff.
func submitEvents(ctx context.Context, cfg *Config, events []Event, stats *Stats) error {
	log := logger.Get().Named("submit")
	workers := max(1, cfg.Workers)
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/events"

	var successful, duplicate, failed, submitted, retries atomic.Int64

	eventChan := make(chan Event, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				result, tries := submitWithRetry(ctx, client, url, event)
				submitted.Add(1)
				retries.Add(int64(tries - 1))
				switch result {
				case resultSuccess:
					successful.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				case resultFailed:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "event submission failed", logger.String("eventID", event.EventID))
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	stats.Retries = int(retries.Load())

	log.Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", stats.EventsFailed),
		logger.Int("retries", stats.Retries),
	)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitWithRetry posts one event, retrying on 429 and transport errors.
// It returns the outcome and the number of attempts made.
func submitWithRetry(ctx context.Context, client *HTTPClient, url string, event Event) (submitResult, int) {
	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		result, retry := submitSingleEvent(ctx, client, url, event)
		if !retry || attempt == maxSubmitAttempts {
			return result, attempt
		}
		select {
		case <-ctx.Done():
			return resultFailed, attempt
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// submitSingleEvent submits a single event and reports whether it is worth
// retrying.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) (submitResult, bool) {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return resultFailed, ctx.Err() == nil
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed, true
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultSuccess, false
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return resultSuccess, false
		}
		return resultDuplicate, false
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return resultFailed, true
	default:
		return resultFailed, false
	}
}
