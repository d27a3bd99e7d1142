package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/arthspark/etl/config"
	"github.com/hashicorp/go-retryablehttp"
)

// MissingValue is the token FRED returns in place of a numeric value when
// no observation exists for a date.
const MissingValue = "."

// Error taxonomy for the extractor. Callers match with errors.Is.
var (
	// ErrSourceUnavailable covers transport failures, auth failures and
	// rate limiting, after retryablehttp has exhausted its retries.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrUnknownSeries means the series identifier does not exist upstream.
	ErrUnknownSeries = errors.New("unknown series")
	// ErrMalformedResponse means the payload could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// RawObservation is one (date, value) point as FRED serves it: both fields
// are strings, and Value may be the missing-value token.
type RawObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// SeriesInfo is the descriptive metadata FRED publishes for a series.
type SeriesInfo struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	ObservationStart   string `json:"observation_start"`
	ObservationEnd     string `json:"observation_end"`
	Frequency          string `json:"frequency"`
	Units              string `json:"units"`
	SeasonalAdjustment string `json:"seasonal_adjustment"`
	LastUpdated        string `json:"last_updated"`
}

type observationsResponse struct {
	Observations []RawObservation `json:"observations"`
}

type seriesResponse struct {
	Seriess []SeriesInfo `json:"seriess"`
}

type FredClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	FredConfig *config.FredConfig
	apiKey     string
}

func NewFredClient(config *config.Config, logger *slog.Logger) (*FredClient, error) {
	apiKey := os.Getenv("FRED_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FRED_API_KEY env variable is not set")
	}

	client := &FredClient{
		HTTPClient: retryablehttp.NewClient(),
		Logger:     logger,
		FredConfig: &config.Fred,
		apiKey:     apiKey,
	}

	client.HTTPClient.RetryWaitMin = config.Extract.Backoff.RetryWaitMin
	client.HTTPClient.RetryWaitMax = config.Extract.Backoff.RetryWaitMax
	client.HTTPClient.RetryMax = config.Extract.Backoff.RetryMax
	client.HTTPClient.Logger = logger

	return client, nil
}

// GetObservations fetches the observations for a series in ascending date
// order. startDate is inclusive; pass "" for the full available history.
func (c *FredClient) GetObservations(seriesID, startDate string) ([]RawObservation, error) {
	url, err := c.observationsURL(seriesID, startDate)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("observations for series %s", seriesID)
	body, err := c.fetchData(url, description)
	if err != nil {
		return nil, err
	}

	var payload observationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrMalformedResponse, description, err)
	}
	if payload.Observations == nil {
		return nil, fmt.Errorf("%w: no observations field in %s", ErrMalformedResponse, description)
	}

	return payload.Observations, nil
}

// GetSeries fetches the upstream descriptive metadata for a series.
func (c *FredClient) GetSeries(seriesID string) (*SeriesInfo, error) {
	url, err := c.seriesURL(seriesID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("series info for %s", seriesID)
	body, err := c.fetchData(url, description)
	if err != nil {
		return nil, err
	}

	var payload seriesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrMalformedResponse, description, err)
	}
	if len(payload.Seriess) == 0 {
		return nil, fmt.Errorf("%w: %s returned no series", ErrUnknownSeries, description)
	}

	return &payload.Seriess[0], nil
}

// fetchData handles the common logic of making the HTTP request and mapping
// the response status onto the extractor error taxonomy.
func (c *FredClient) fetchData(url, description string) ([]byte, error) {
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrSourceUnavailable, description, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSourceUnavailable, description, err)
	}

	if resp.StatusCode != http.StatusOK {
		// FRED answers 400 with an explanatory message for nonexistent series.
		if resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("does not exist")) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, description)
		}
		return nil, fmt.Errorf("%w: fetching %s, status: %s, body: %s", ErrSourceUnavailable, description, resp.Status, string(body))
	}

	return body, nil
}

func (c *FredClient) observationsURL(seriesID, startDate string) (string, error) {
	parsedURL, err := url.Parse(c.FredConfig.BaseURL + "/series/observations")
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	query := c.baseQuery(parsedURL, seriesID)
	query.Set("sort_order", "asc")
	if startDate != "" {
		query.Set("observation_start", startDate)
	}
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

func (c *FredClient) seriesURL(seriesID string) (string, error) {
	parsedURL, err := url.Parse(c.FredConfig.BaseURL + "/series")
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	parsedURL.RawQuery = c.baseQuery(parsedURL, seriesID).Encode()

	return parsedURL.String(), nil
}

// baseQuery adds the parameters every FRED request carries: the series id,
// the API key and the response format.
func (c *FredClient) baseQuery(parsedURL *url.URL, seriesID string) url.Values {
	fileType := c.FredConfig.FileType
	if fileType == "" {
		fileType = "json"
	}

	query := parsedURL.Query()
	query.Set("series_id", seriesID)
	query.Set("api_key", c.apiKey)
	query.Set("file_type", fileType)
	return query
}
