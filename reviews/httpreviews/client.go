// Package httpreviews fetches book reviews from an HTTP review service.
package httpreviews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

var (
	ErrEmptyBaseURL          = errors.New("base URL must not be empty")
	ErrInvalidBaseURL        = errors.New("base URL is invalid")
	ErrServiceUnavailable    = errors.New("review service unavailable")
	ErrUnexpectedStatus      = errors.New("unexpected status code")
	ErrDecodingReviewsFailed = errors.New("decoding reviews failed")
)

type reviewsResponse struct {
	Reviews []string `json:"reviews"`
}

// Client calls GET <base>/books/{isbn}/reviews.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. The given client is used as is, a nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the timeout of the default client, the default is 5s.
// It has no effect on a client passed with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func NewClient(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}

	for _, option := range options {
		option(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// GetReviewsForBook returns nil when the service knows no reviews for the ISBN (404).
// Transport failures and 5xx responses fail with ErrServiceUnavailable.
func (c *Client) GetReviewsForBook(ctx context.Context, isbn string) ([]string, error) {
	endpoint := c.baseURL + "/books/" + url.PathEscape(isbn) + "/reviews"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Join(ErrServiceUnavailable, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}

	var decoded reviewsResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Join(ErrDecodingReviewsFailed, err)
	}

	return decoded.Reviews, nil
}

// Close drops idle keep-alive connections. It can be called any number of times.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}
