package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dramadl/internal/model"
)

// Direct resolves episodes against a simple HTTP JSON endpoint:
// GET <base>?video_id=<id>&quality=<q> returning {"url": "..."}.
type Direct struct {
	baseURL string
	client  *http.Client
}

type directResponse struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Message string `json:"message"`
}

func NewDirect(baseURL string) *Direct {
	return &Direct{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Direct) Name() string {
	return "direct"
}

func (p *Direct) GetVideoURL(ctx context.Context, episodeID, quality string) (*model.VideoInfo, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("provider base URL not configured")
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}
	q := u.Query()
	q.Set("video_id", episodeID)
	q.Set("quality", quality)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve failed: HTTP %d", resp.StatusCode)
	}

	var body directResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("resolve response decode failed: %w", err)
	}
	if body.URL == "" {
		return nil, fmt.Errorf("resolver returned no playable URL")
	}

	vq := body.Quality
	if vq == "" {
		vq = quality
	}
	return &model.VideoInfo{URL: body.URL, Quality: vq}, nil
}
