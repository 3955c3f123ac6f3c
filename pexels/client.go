// Package pexels searches the Pexels stock library and downloads the results
// into the local media cache.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// VideoFile is one rendition of a stock video
type VideoFile struct {
	ID       int    `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Video is one stock video search hit
type Video struct {
	ID       int         `json:"id"`
	Duration int         `json:"duration"`
	Files    []VideoFile `json:"video_files"`
}

// Photo is one stock photo search hit
type Photo struct {
	ID  int `json:"id"`
	Src struct {
		Original string `json:"original"`
		Large2x  string `json:"large2x"`
	} `json:"src"`
}

// Searcher is what the visuals stage needs from a stock library
type Searcher interface {
	SearchVideos(ctx context.Context, query string) ([]Video, error)
	SearchPhotos(ctx context.Context, query string) ([]Photo, error)
	Download(ctx context.Context, link, dir, query, ext string) (string, error)
}

// Client talks to the Pexels REST API
type Client struct {
	apiKey  string
	cfg     config.StockConfig
	http    *http.Client
	policy  retry.Policy
	baseURL string
}

// New creates a client; apiKey is sent verbatim in the Authorization header
func New(apiKey string, cfg config.StockConfig, policy retry.Policy) *Client {
	return &Client{
		apiKey:  apiKey,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		policy:  policy,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// NewFromEnv reads PEXELS_API_KEY
func NewFromEnv(cfg *config.Config) (*Client, error) {
	key := os.Getenv("PEXELS_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("PEXELS_API_KEY environment variable not set")
	}
	return New(key, cfg.Stock, retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}), nil
}

// SearchVideos runs /videos/search for landscape clips
func (c *Client) SearchVideos(ctx context.Context, query string) ([]Video, error) {
	var out struct {
		Videos []Video `json:"videos"`
	}
	if err := c.search(ctx, "/videos/search", query, true, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// SearchPhotos runs /v1/search
func (c *Client) SearchPhotos(ctx context.Context, query string) ([]Photo, error) {
	var out struct {
		Photos []Photo `json:"photos"`
	}
	if err := c.search(ctx, "/v1/search", query, false, &out); err != nil {
		return nil, err
	}
	return out.Photos, nil
}

func (c *Client) search(ctx context.Context, path, query string, sized bool, dst any) error {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	params.Set("orientation", c.cfg.Orientation)
	if sized && c.cfg.Size != "" {
		params.Set("size", c.cfg.Size)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	return c.policy.Do(ctx, "pexels "+path, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &retry.StatusError{Service: "pexels", StatusCode: resp.StatusCode, Body: string(body)}
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return retry.Permanent(fmt.Errorf("decode pexels response: %w", err))
		}
		return nil
	})
}

// Download fetches link into dir under a name derived from query and returns
// the local path.
func (c *Client) Download(ctx context.Context, link, dir, query, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	outFile := filepath.Join(dir, CacheName(query, ext, time.Now()))

	err := c.policy.Do(ctx, "pexels download", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Service: "pexels download", StatusCode: resp.StatusCode}
		}

		f, err := os.Create(outFile)
		if err != nil {
			return retry.Permanent(err)
		}
		n, copyErr := io.Copy(f, resp.Body)
		closeErr := f.Close()
		if copyErr != nil {
			return copyErr
		}
		if closeErr != nil {
			return retry.Permanent(closeErr)
		}
		if n == 0 {
			return retry.Permanent(errors.New("downloaded file is empty"))
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(outFile)
		return "", err
	}
	return outFile, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// CacheName builds "<safe query>_<unix ts>_<short id>.<ext>" with the query
// reduced to at most 50 filename-safe characters.
func CacheName(query, ext string, now time.Time) string {
	safe := unsafeChars.ReplaceAllString(query, "")
	safe = strings.ReplaceAll(strings.TrimSpace(safe), " ", "_")
	if len(safe) > 50 {
		safe = safe[:50]
	}
	if safe == "" {
		safe = "media"
	}
	return fmt.Sprintf("%s_%d_%s.%s", safe, now.Unix(), uuid.NewString()[:8], strings.TrimPrefix(ext, "."))
}
