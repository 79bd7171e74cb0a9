// Package engine performs a single download task end-to-end: resolve the
// transfer URL, stream the body to a temporary file with byte-range resume,
// and rename on success. Pause and cancel are cooperative, polled once per
// chunk; the partial temp file is always left on disk so a later run can
// resume it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dramadl/internal/model"
	"dramadl/internal/provider"
	"dramadl/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultChunkSize is the streaming granularity; pause/cancel are
	// honored at chunk boundaries.
	DefaultChunkSize = 64 * 1024

	// speedSampleWindow is how often the smoothed speed baseline advances.
	speedSampleWindow = 500 * time.Millisecond

	// transferTimeout bounds a whole transfer on the default client so a
	// stalled stream cannot hold its batch slot forever.
	transferTimeout = time.Hour
)

// Sentinel results of a cooperative stop. Both leave the temp file on disk.
var (
	ErrPaused    = errors.New("download paused")
	ErrCancelled = errors.New("download cancelled")
)

// Control is polled once per chunk to decide whether a task keeps running.
// The batch runner implements it over its paused/cancelled sets.
type Control interface {
	Cancelled(id string) bool
	Paused(id string) bool
}

// ProgressFunc receives the task after each chunk once the total is known.
type ProgressFunc func(t *model.Task)

type Engine struct {
	provider    provider.Provider
	client      *http.Client
	downloadDir string
	quality     string
	chunkSize   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

type Option func(*Engine)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithSpeedLimit caps throughput in bytes/sec. Zero means unlimited.
func WithSpeedLimit(bytesPerSec int64) Option {
	return func(e *Engine) {
		if bytesPerSec > 0 {
			burst := e.chunkSize
			if int64(burst) < bytesPerSec {
				burst = int(bytesPerSec)
			}
			e.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
		} else {
			e.limiter = nil
		}
	}
}

func New(p provider.Provider, downloadDir, quality string, l *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		provider:    p,
		client:      &http.Client{Timeout: transferTimeout},
		downloadDir: downloadDir,
		quality:     quality,
		chunkSize:   DefaultChunkSize,
		logger:      l.With(zap.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one task from URL resolution through bytes on disk. It
// returns ErrPaused/ErrCancelled on a cooperative stop and a descriptive
// error on failure; the caller owns the resulting status transition and
// event, except for the fetching/downloading/completed transitions which
// happen here as the transfer advances.
func (e *Engine) Execute(ctx context.Context, t *model.Task, ctl Control, onProgress ProgressFunc) error {
	if t.GetStatus().IsTerminal() {
		return ErrCancelled
	}
	if err := t.TransitionTo(model.StatusFetching); err != nil {
		return err
	}

	vi, err := e.provider.GetVideoURL(ctx, t.Episode.VideoID, e.quality)
	if err != nil {
		return fmt.Errorf("resolve video URL: %w", err)
	}
	if vi == nil || vi.URL == "" {
		return fmt.Errorf("resolver returned no playable URL")
	}
	t.SetVideoURL(vi.URL)

	if ctl.Cancelled(t.ID) {
		return ErrCancelled
	}
	if ctl.Paused(t.ID) {
		return ErrPaused
	}

	if err := t.TransitionTo(model.StatusDownloading); err != nil {
		return err
	}
	return e.download(ctx, t, ctl, onProgress)
}

func (e *Engine) download(ctx context.Context, t *model.Task, ctl Control, onProgress ProgressFunc) error {
	dramaDir, err := utils.SanitizePath(utils.SanitizeName(t.Drama.Title), e.downloadDir)
	if err != nil {
		return fmt.Errorf("bad drama title: %w", err)
	}
	if err := os.MkdirAll(dramaDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	filename := utils.SanitizeName(t.Episode.Title + ".mp4")
	filePath := filepath.Join(dramaDir, filename)
	tempPath := filePath + ".tmp"
	t.SetPaths(filePath, tempPath)

	// An existing temp file is a previous partial transfer; its size is the
	// resume offset.
	var offset int64
	if fi, err := os.Stat(tempPath); err == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Snapshot().VideoURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var total int64
	var flags int
	switch resp.StatusCode {
	case http.StatusPartialContent:
		total = parseContentRangeTotal(resp.Header.Get("Content-Range"))
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case http.StatusOK:
		if total = resp.ContentLength; total < 0 {
			total = 0
		}
		if offset > 0 {
			// Server ignored the Range header: restart from byte zero so
			// fresh bytes never land after stale ones.
			e.logger.Debug("server does not support ranges, restarting",
				zap.String("task", t.ID), zap.Int64("discarded", offset))
			offset = 0
		}
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.OpenFile(tempPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	defer f.Close()

	t.SetBytes(offset, total)
	if offset > 0 {
		e.logger.Info("resuming download",
			zap.String("task", t.ID), zap.Int64("offset", offset), zap.Int64("total", total))
	}

	downloaded := offset
	lastSample := time.Now()
	lastDownloaded := downloaded
	buf := make([]byte, e.chunkSize)

	for {
		if ctl.Cancelled(t.ID) {
			return ErrCancelled
		}
		if ctl.Paused(t.ID) {
			return ErrPaused
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return fmt.Errorf("write temp file: %w", err)
			}
			downloaded += int64(n)
			t.SetBytes(downloaded, 0)

			now := time.Now()
			if elapsed := now.Sub(lastSample); elapsed >= speedSampleWindow {
				t.SetSpeed(float64(downloaded-lastDownloaded) / elapsed.Seconds())
				lastSample = now
				lastDownloaded = downloaded
			}

			if total > 0 && onProgress != nil {
				onProgress(t)
			}

			if e.limiter != nil {
				if err := e.limiter.WaitN(ctx, n); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read stream: %w", readErr)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		return fmt.Errorf("finalize file: %w", err)
	}

	t.MarkCompleted()
	if onProgress != nil {
		onProgress(t)
	}
	return nil
}

// parseContentRangeTotal extracts the total size from a Content-Range header
// of the form "bytes start-end/total". Unknown totals ("*") yield zero.
func parseContentRangeTotal(header string) int64 {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0
	}
	total, err := strconv.ParseInt(strings.TrimSpace(header[idx+1:]), 10, 64)
	if err != nil {
		return 0
	}
	return total
}
