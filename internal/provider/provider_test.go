package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dramadl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls atomic.Int32
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GetVideoURL(ctx context.Context, episodeID, quality string) (*model.VideoInfo, error) {
	s.calls.Add(1)
	return &model.VideoInfo{URL: "http://cdn.example/" + episodeID, Quality: quality}, nil
}

func TestRateLimitedDelegates(t *testing.T) {
	stub := &stubProvider{}
	p := NewRateLimited(stub, 5, time.Second)

	vi, err := p.GetVideoURL(context.Background(), "v42", "720p")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/v42", vi.URL)
	assert.Equal(t, "stub", p.Name())
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestRateLimitedThrottles(t *testing.T) {
	stub := &stubProvider{}
	window := 250 * time.Millisecond
	p := NewRateLimited(stub, 2, window)
	ctx := context.Background()

	_, err := p.GetVideoURL(ctx, "v1", "1080p")
	require.NoError(t, err)
	_, err = p.GetVideoURL(ctx, "v2", "1080p")
	require.NoError(t, err)

	start := time.Now()
	_, err = p.GetVideoURL(ctx, "v3", "1080p")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), window/2, "third call within window should be delayed")
}

func TestDirectResolvesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ep7", r.URL.Query().Get("video_id"))
		assert.Equal(t, "480p", r.URL.Query().Get("quality"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url": "http://cdn.example/ep7.mp4", "quality": "480p"}`))
	}))
	defer srv.Close()

	p := NewDirect(srv.URL)
	vi, err := p.GetVideoURL(context.Background(), "ep7", "480p")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/ep7.mp4", vi.URL)
}

func TestDirectErrors(t *testing.T) {
	t.Run("HTTPError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewDirect(srv.URL).GetVideoURL(context.Background(), "x", "1080p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 502")
	})

	t.Run("EmptyURL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"url": ""}`))
		}))
		defer srv.Close()

		_, err := NewDirect(srv.URL).GetVideoURL(context.Background(), "x", "1080p")
		require.Error(t, err)
	})

	t.Run("Unconfigured", func(t *testing.T) {
		_, err := NewDirect("").GetVideoURL(context.Background(), "x", "1080p")
		require.Error(t, err)
	})
}
