// Package scryfall is the card database client. It exposes the two endpoints
// the contest needs: a random card draw and the full-text search endpoint that
// entries are re-run against.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Card is one card record as returned by Scryfall. Only the fields the
// contest uses are decoded; Name and ScryfallURI are required.
type Card struct {
	Name        string    `json:"name"`
	ScryfallURI string    `json:"scryfall_uri"`
	ImageURIs   ImageURIs `json:"image_uris"`
}

// ImageURIs holds the rendered image links for a card. The contest only
// ever posts the PNG rendering.
type ImageURIs struct {
	PNG string `json:"png"`
}

// SearchResult is the response of the cards/search endpoint.
type SearchResult struct {
	TotalCards int    `json:"total_cards"`
	Data       []Card `json:"data"`
}

// Client talks to the Scryfall REST API.
type Client struct {
	httpClient    *http.Client
	randomCardURL string
	searchURL     string
	logger        *zap.Logger
	maxRetries    uint64
	retryInterval time.Duration
}

// NewClient creates a Scryfall client with a bounded request timeout.
func NewClient(randomCardURL, searchURL string, logger *zap.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		randomCardURL: randomCardURL,
		searchURL:     searchURL,
		logger:        logger,
		maxRetries:    3,
		retryInterval: 500 * time.Millisecond,
	}
}

// RandomCard fetches one random card.
func (c *Client) RandomCard(ctx context.Context) (*Card, error) {
	body, err := c.get(ctx, c.randomCardURL)
	if err != nil {
		return nil, fmt.Errorf("random card fetch failed: %w", err)
	}

	var card Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card: %w", err)
	}
	if err := card.validate(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched random card", zap.String("name", card.Name))
	return &card, nil
}

// Search runs a full-text query against the search endpoint. A query that
// matches nothing is an HTTP 404 on Scryfall; that is surfaced as an error
// like any other non-200 so callers can treat it as a failed lookup.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	searchURL := fmt.Sprintf("%s?q=%s", c.searchURL, url.QueryEscape(query))
	body, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search result: %w", err)
	}

	for i := range result.Data {
		if result.Data[i].Name == "" {
			return nil, fmt.Errorf("search result entry %d missing name", i)
		}
	}

	c.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("total_cards", result.TotalCards))
	return &result, nil
}

func (card *Card) validate() error {
	if card.Name == "" {
		return fmt.Errorf("card record missing name")
	}
	if card.ScryfallURI == "" {
		return fmt.Errorf("card record missing scryfall_uri")
	}
	return nil
}

// get performs a GET with bounded exponential backoff. Server errors and
// transport failures are retried; client errors are permanent.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("scryfall request failed, will retry", zap.String("url", rawURL), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("scryfall returned retryable status",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode))
			return fmt.Errorf("scryfall returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("scryfall returned status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	c.logger.Debug("downloaded URL", zap.String("url", rawURL))
	return body, nil
}
