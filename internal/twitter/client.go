// Package twitter is the social feed client. It covers the two calls the
// contest makes: posting the challenge tweet with its composite image, and
// paging through mentions since the challenge tweet to collect entries.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/oauth1"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.twitter.com/1.1"

// mentionsPageSize is the per-page count requested from the mentions timeline.
const mentionsPageSize = 200

// Credentials are the OAuth 1.0a keys for the contest account.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessTokenKey    string
	AccessTokenSecret string
}

// Mention is one reply item from the mentions timeline.
type Mention struct {
	ID       int64    `json:"id"`
	Text     string   `json:"text"`
	User     User     `json:"user"`
	Entities Entities `json:"entities"`
}

// User identifies the author of a mention.
type User struct {
	ScreenName string `json:"screen_name"`
}

// Entities holds the expanded URLs embedded in a tweet.
type Entities struct {
	URLs []URLEntity `json:"urls"`
}

// URLEntity is one t.co link with its expansion.
type URLEntity struct {
	ExpandedURL string `json:"expanded_url"`
}

// Client talks to the Twitter v1.1 REST API using OAuth 1.0a request signing.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	logger        *zap.Logger
	maxRetries    uint64
	retryInterval time.Duration
}

// NewClient creates a Twitter client whose requests are signed with creds.
// baseURL overrides the API endpoint when non-empty (used by tests).
func NewClient(creds Credentials, baseURL string, logger *zap.Logger) *Client {
	oauthConfig := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessTokenKey, creds.AccessTokenSecret)

	httpClient := oauthConfig.Client(oauth1.NoContext, token)
	httpClient.Timeout = 30 * time.Second

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		logger:        logger,
		maxRetries:    3,
		retryInterval: 500 * time.Millisecond,
	}
}

// PostWithMedia posts a status with an attached image and returns the tweet
// id. A missing or unreadable image is fatal: the contest never posts a
// challenge without its card composite.
func (c *Client) PostWithMedia(ctx context.Context, status, imagePath string) (int64, error) {
	if imagePath == "" {
		return 0, fmt.Errorf("no image attached to tweet")
	}
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read tweet image: %w", err)
	}

	c.logger.Info("sending tweet", zap.String("status", status), zap.String("image", imagePath))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("status", status); err != nil {
		return 0, fmt.Errorf("failed to encode tweet: %w", err)
	}
	part, err := writer.CreateFormFile("media[]", filepath.Base(imagePath))
	if err != nil {
		return 0, fmt.Errorf("failed to encode tweet media: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return 0, fmt.Errorf("failed to encode tweet media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to encode tweet: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/statuses/update_with_media.json", writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return 0, fmt.Errorf("tweet failed to send: %w", err)
	}

	var response struct {
		IDStr string `json:"id_str"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("failed to parse tweet response: %w", err)
	}
	tweetID, err := strconv.ParseInt(response.IDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tweet response has invalid id %q: %w", response.IDStr, err)
	}

	c.logger.Info("tweet sent", zap.Int64("tweet_id", tweetID))
	return tweetID, nil
}

// MentionsSince pages through the mentions timeline, oldest page last,
// returning every mention newer than sinceID. A rate-limit response ends the
// scan early with a warning and returns the mentions collected so far.
func (c *Client) MentionsSince(ctx context.Context, sinceID int64) ([]Mention, error) {
	var all []Mention
	maxID := int64(0)

	for {
		page, rateLimited, err := c.mentionsPage(ctx, sinceID, maxID)
		if err != nil {
			return nil, err
		}
		if rateLimited {
			c.logger.Warn("rate limit exceeded, ending mention scan early",
				zap.Int("collected", len(all)))
			return all, nil
		}
		if len(page) == 0 {
			return all, nil
		}

		all = append(all, page...)
		maxID = page[len(page)-1].ID - 1
		if maxID <= sinceID {
			return all, nil
		}
	}
}

// mentionsPage fetches one timeline page. The boolean reports a rate-limit
// response, which the caller treats as end-of-scan rather than an error.
func (c *Client) mentionsPage(ctx context.Context, sinceID, maxID int64) ([]Mention, bool, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(mentionsPageSize))
	if sinceID > 0 {
		params.Set("since_id", strconv.FormatInt(sinceID, 10))
	}
	if maxID > 0 {
		params.Set("max_id", strconv.FormatInt(maxID, 10))
	}

	pageURL := c.baseURL + "/statuses/mentions_timeline.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("mentions fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("mentions fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("mentions fetch failed: %w", err)
	}

	var page []Mention
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, false, fmt.Errorf("failed to parse mentions: %w", err)
	}
	return page, false, nil
}

// do performs one signed request with bounded exponential backoff on server
// errors and transport failures.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, payload []byte) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("twitter request failed, will retry", zap.String("url", rawURL), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		c.logger.Debug("twitter status code", zap.Int("status", resp.StatusCode))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("twitter returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("twitter returned status %d", resp.StatusCode))
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
	return body, nil
}
