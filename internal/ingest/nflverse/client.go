package nflverse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	// ReleasesURL hosts the nflverse-data release assets.
	ReleasesURL = "https://github.com/nflverse/nflverse-data/releases/download"
	// GamesURL is the full schedule history, one row per game.
	GamesURL = "https://github.com/nflverse/nfldata/raw/master/data/games.csv"
)

// Client downloads nflverse CSV files
type Client struct {
	http     *resty.Client
	baseURL  string
	gamesURL string
	logger   logrus.FieldLogger
}

// NewClient creates a client. Empty URLs fall back to the public nflverse locations.
func NewClient(baseURL, gamesURL string, logger logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = ReleasesURL
	}
	if gamesURL == "" {
		gamesURL = GamesURL
	}

	rc := resty.New().
		SetTimeout(2 * time.Minute).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{
		http:     rc,
		baseURL:  strings.TrimRight(baseURL, "/"),
		gamesURL: gamesURL,
		logger:   logger.WithField("component", "nflverse-client"),
	}
}

// PlayerStatsURL is the weekly offensive stats file for a season
func (c *Client) PlayerStatsURL(season int) string {
	return fmt.Sprintf("%s/player_stats/player_stats_%d.csv", c.baseURL, season)
}

// RosterURL is the season roster file
func (c *Client) RosterURL(season int) string {
	return fmt.Sprintf("%s/rosters/roster_%d.csv", c.baseURL, season)
}

// GamesURL is the schedule file
func (c *Client) GamesURL() string {
	return c.gamesURL
}

// Download fetches a CSV body. A 404 means the season has not been published.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	c.logger.Infof("Downloading %s", url)

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotPublished, url)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("downloading %s: status %d", url, resp.StatusCode())
	}

	c.logger.Infof("✓ Downloaded %d bytes", len(resp.Body()))
	return resp.Body(), nil
}
