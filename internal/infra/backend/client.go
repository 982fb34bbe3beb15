// Package backend provides a client for the catalog and download backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/queuebox/internal/app/fetch"
	"github.com/osa030/queuebox/internal/domain/song"
)

// livenessMarker is the body the backend serves on its root path.
const livenessMarker = "YTM_RS_BACKEND"

// watchURL is the catalog page of a song, used as the backend lookup key.
const watchURL = "https://music.youtube.com/watch?v="

// ErrNotBackend is returned when the server at the configured URL is something else.
var ErrNotBackend = errors.New("server is not a queuebox backend")

// Config represents backend client configuration.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration // Per metadata request; streams are bounded by their context
}

// Client is a backend API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		timeout:    cfg.Timeout,
	}, nil
}

// Ensure Client implements the interface.
var _ fetch.Remote = (*Client)(nil)

// Ping checks that the backend is up and is the expected server.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != livenessMarker {
		return errors.Wrapf(ErrNotBackend, "status %d", resp.StatusCode)
	}
	return nil
}

// infoRequest is the body of POST /request_info.
type infoRequest struct {
	URL     string `json:"url"`
	Process bool   `json:"process"`
}

// infoResponse is the part of the extractor info the client uses.
type infoResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Artist     string   `json:"artist"`
	Channel    string   `json:"channel"`
	Uploader   string   `json:"uploader"`
	Album      string   `json:"album"`
	Duration   float64  `json:"duration"` // Seconds
	WebpageURL string   `json:"webpage_url"`
	Thumbnail  string   `json:"thumbnail"`
	Tags       []string `json:"tags"`
}

// Metadata resolves catalog information of a song.
func (c *Client) Metadata(ctx context.Context, id song.ID) (song.Metadata, error) {
	if id.IsZero() {
		return song.Metadata{}, errors.Wrap(song.ErrNotFound, "empty song id")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(infoRequest{URL: watchURL + url.QueryEscape(id.String()), Process: false})
	if err != nil {
		return song.Metadata{}, errors.Wrap(err, "failed to encode request")
	}
	resp, err := c.do(ctx, http.MethodPost, "/request_info", bytes.NewReader(payload))
	if err != nil {
		return song.Metadata{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, id); err != nil {
		return song.Metadata{}, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return song.Metadata{}, errors.Wrap(err, "failed to read response body")
	}

	// The backend answers extractor failures with a plain-text message
	var info infoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return song.Metadata{}, errors.Wrapf(song.ErrNotFound, "%s: %s", id, firstLine(body))
	}
	if info.ID == "" {
		info.ID = id.String()
	}
	return info.toMetadata(), nil
}

// Fetch opens the audio body of a song.
func (c *Client) Fetch(ctx context.Context, id song.ID) (*fetch.Stream, error) {
	if id.IsZero() {
		return nil, errors.Wrap(song.ErrNotFound, "empty song id")
	}
	resp, err := c.do(ctx, http.MethodGet, "/stream?id="+url.QueryEscape(id.String()), nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, id); err != nil {
		resp.Body.Close()
		return nil, err
	}
	zlog.Debug().Msgf("Opened stream of %s (%d bytes)", id, resp.ContentLength)
	return &fetch.Stream{Body: resp.Body, Size: resp.ContentLength}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "request aborted")
		}
		return nil, errors.Wrapf(err, "failed to send %s %s", method, path)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, id song.ID) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(song.ErrNotFound, "%s", id)
	case resp.StatusCode >= 400:
		return errors.Newf("backend returned status %d for %s", resp.StatusCode, id)
	}
	return nil
}

func (i infoResponse) toMetadata() song.Metadata {
	artists := i.Artists
	if len(artists) == 0 && i.Artist != "" {
		artists = strings.Split(i.Artist, ", ")
	}
	channel := i.Channel
	if channel == "" {
		channel = i.Uploader
	}
	return song.Metadata{
		ID:        song.ID(i.ID),
		Title:     i.Title,
		Artists:   artists,
		Channel:   channel,
		Album:     i.Album,
		Duration:  time.Duration(i.Duration * float64(time.Second)),
		URL:       i.WebpageURL,
		Thumbnail: i.Thumbnail,
		Tags:      i.Tags,
	}
}

func firstLine(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
