package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tempo/internal/core"
)

// Client fetches time-tracking sessions from the tracker's REST API with
// token authentication and page-based iteration.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

func NewClient(baseURL, token string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		pageSize: pageSize,
		http:     newHTTPClientWithPooling(),
	}
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling,
// proper timeouts, and keep-alive settings for the tracker API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second, // TCP connection timeout
		KeepAlive: 30 * time.Second, // Keep-alive probe interval
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second, // Overall request timeout
	}
}

// apiSession is the wire shape of one session returned by the tracker API.
// Duration follows Toggl semantics: non-positive while running.
type apiSession struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Project     string    `json:"project"`
	Start       time.Time `json:"start"`
	Duration    int64     `json:"duration"`
	Tags        []string  `json:"tags"`
}

func (s apiSession) toTrack() core.Track {
	return core.Track{
		ExternalID:      strconv.FormatInt(s.ID, 10),
		Start:           s.Start.UTC(),
		DurationSeconds: s.Duration,
		Description:     s.Description,
		ProjectName:     s.Project,
	}
}

// FetchSince pages through /api/v1/sessions until a short page signals the
// end of the result set.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]core.Track, error) {
	var tracks []core.Track
	for page := 1; ; page++ {
		sessions, err := c.fetchPage(ctx, since, page)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			tracks = append(tracks, s.toTrack())
		}
		if len(sessions) < c.pageSize {
			break
		}
	}

	slog.DebugContext(ctx, "Fetched tracker sessions",
		"since", since.Format(time.RFC3339), "count", len(tracks))
	return tracks, nil
}

func (c *Client) fetchPage(ctx context.Context, since time.Time, page int) ([]apiSession, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/sessions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker API returned %d for page %d", resp.StatusCode, page)
	}

	var sessions []apiSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode sessions page %d: %w", page, err)
	}
	return sessions, nil
}
