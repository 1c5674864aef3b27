package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// SleeperPlayersURL returns every NFL player keyed by Sleeper id.
const SleeperPlayersURL = "https://api.sleeper.app/v1/players/nfl"

// Client fetches the raw players payload with bounded retries.
type Client struct {
	http       *resty.Client
	url        string
	maxRetries int
	backoff    time.Duration
	logger     logrus.FieldLogger
}

// NewClient creates a client. maxRetries counts retries after the first attempt.
func NewClient(url string, timeout time.Duration, maxRetries int, backoff time.Duration, logger logrus.FieldLogger) *Client {
	if url == "" {
		url = SleeperPlayersURL
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	http := resty.New()
	http.SetTimeout(timeout)
	http.SetHeader("Accept", "application/json")

	return &Client{
		http:       http,
		url:        url,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger.WithField("component", "sleeper-client"),
	}
}

// FetchRaw performs up to maxRetries+1 attempts, sleeping backoff*2^attempt
// between them. It returns the last error when every attempt fails.
func (c *Client) FetchRaw(ctx context.Context) (RawPlayers, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		c.logger.Infof("Fetching Sleeper player data (attempt %d/%d)", attempt+1, c.maxRetries+1)

		raw, err := c.fetchOnce(ctx)
		if err == nil {
			c.logger.Infof("✓ Fetched %d players from Sleeper", len(raw))
			return raw, nil
		}

		lastErr = err
		c.logger.Warnf("⚠️  Attempt %d failed: %v", attempt+1, err)

		if attempt == c.maxRetries {
			break
		}

		wait := c.backoff * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	c.logger.Error("All attempts failed to fetch Sleeper data")
	return nil, fmt.Errorf("fetching sleeper players after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context) (RawPlayers, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("requesting players: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	var raw RawPlayers
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("decoding players: %w", err)
	}

	return raw, nil
}
