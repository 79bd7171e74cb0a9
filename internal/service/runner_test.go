package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"dramadl/internal/engine"
	"dramadl/internal/event"
	"dramadl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// A Submit that lands before Run is scheduled must still count toward batch
// settlement: Done must not close while the submitted task is mid-transfer.
func TestRunnerSubmitBeforeRunIsCounted(t *testing.T) {
	payload := []byte(strings.Repeat("x", 16*1024))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if strings.HasSuffix(r.URL.Path, "slow") {
			half := len(payload) / 2
			w.Write(payload[:half])
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			time.Sleep(300 * time.Millisecond)
			w.Write(payload[half:])
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	eng := engine.New(&fakeProvider{baseURL: srv.URL}, t.TempDir(), "1080p", zap.NewNop())
	r := newBatchRunner(eng, event.NewBus(), 2, zap.NewNop())

	slow := model.NewTask(
		model.DramaInfo{BookID: "bk1", Title: "Moonlit Palace"},
		model.EpisodeInfo{VideoID: "slow", Title: "Episode Slow"},
	)
	fast := model.NewTask(
		model.DramaInfo{BookID: "bk1", Title: "Moonlit Palace"},
		model.EpisodeInfo{VideoID: "fast", Title: "Episode Fast"},
	)

	require.True(t, r.Submit(context.Background(), slow))
	go r.Run(context.Background(), []*model.Task{fast})

	select {
	case <-r.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("batch never settled")
	}

	assert.Equal(t, model.StatusCompleted, slow.GetStatus(),
		"batch settled while the submitted task was still %s", slow.GetStatus())
	assert.Equal(t, model.StatusCompleted, fast.GetStatus())
}

// Submit after settlement is refused so the caller starts a fresh batch.
func TestRunnerSubmitAfterSettlement(t *testing.T) {
	eng := engine.New(&fakeProvider{baseURL: "http://unused.example"}, t.TempDir(), "1080p", zap.NewNop())
	r := newBatchRunner(eng, event.NewBus(), 1, zap.NewNop())

	go r.Run(context.Background(), nil)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("empty batch never settled")
	}

	task := model.NewTask(
		model.DramaInfo{BookID: "bk1", Title: "Moonlit Palace"},
		model.EpisodeInfo{VideoID: "ep1", Title: "Episode 1"},
	)
	assert.False(t, r.Submit(context.Background(), task))
}
