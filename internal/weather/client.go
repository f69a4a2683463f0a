package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/metar-fetcher/pkg/logger"
)

// Client handles HTTP requests to the METAR feed and the TAF server
type Client struct {
	config     WeatherConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new weather API client
func NewClient(config WeatherConfig, logger *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: logger.Named("weather-client"),
	}
}

// FetchMETARFeed downloads the complete METAR XML feed
func (c *Client) FetchMETARFeed(ctx context.Context) ([]byte, error) {
	body, status, err := c.get(ctx, c.config.METARFeedURL, WeatherTypeMETAR)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from METAR feed: %d", status)
	}
	return body, nil
}

// FetchTAF downloads the TAF text for a station.
// A non-OK status from the TAF server is reported as ErrTAFNotFound.
func (c *Client) FetchTAF(ctx context.Context, stationID string) (string, error) {
	url := fmt.Sprintf("%s/%s.TXT", strings.TrimRight(c.config.TAFBaseURL, "/"), strings.ToUpper(stationID))

	body, status, err := c.get(ctx, url, WeatherTypeTAF)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		c.logger.Debug("TAF server returned non-OK status",
			logger.String("station", stationID),
			logger.Int("status_code", status))
		return "", fmt.Errorf("%w for %s", ErrTAFNotFound, strings.ToUpper(stationID))
	}
	return string(body), nil
}

// get performs a single GET request and returns the body with the status code
func (c *Client) get(ctx context.Context, url string, weatherType WeatherType) ([]byte, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Weather request failed",
			logger.String("type", string(weatherType)),
			logger.String("url", url),
			logger.Error(err))
		return nil, 0, fmt.Errorf("error making request to weather API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading weather response: %w", err)
	}

	c.logger.Debug("Weather request completed",
		logger.String("type", string(weatherType)),
		logger.String("url", url),
		logger.Int("status_code", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Duration("duration", time.Since(start)))

	return body, resp.StatusCode, nil
}
