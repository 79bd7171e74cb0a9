package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"dramadl/internal/api"
	"dramadl/internal/config"
	"dramadl/internal/event"
	"dramadl/internal/model"
	"dramadl/internal/provider"
	"dramadl/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// cdnProvider resolves every episode to the test CDN.
type cdnProvider struct {
	baseURL string
}

func (p *cdnProvider) Name() string { return "cdn" }

func (p *cdnProvider) GetVideoURL(ctx context.Context, episodeID, quality string) (*model.VideoInfo, error) {
	return &model.VideoInfo{URL: p.baseURL + "/" + episodeID, Quality: quality}, nil
}

// TestDownloadFlow walks the whole stack over HTTP: queue a batch, start it,
// watch the bus, and check the bytes on disk.
func TestDownloadFlow(t *testing.T) {
	content := []byte("not really an mp4 but close enough for the wire")
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	defer cdn.Close()

	downloadDir := t.TempDir()
	cfg := &config.Config{
		DownloadDir:   downloadDir,
		Quality:       "1080p",
		MaxConcurrent: 2,
	}

	bus := event.NewBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	// Rate limit wide enough that it never delays this test
	var p provider.Provider = &cdnProvider{baseURL: cdn.URL}
	p = provider.NewRateLimited(p, 100, time.Second)

	ds := service.NewDownloadService(p, bus, cfg, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/tasks", api.NewTaskHandler(ds).Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	// 1. Queue a three-episode batch
	body, _ := json.Marshal(api.BatchAddRequest{
		Drama: api.DramaRequest{BookID: "bk9", Title: "Jade Dynasty"},
		Episodes: []api.EpisodeRequest{
			{VideoID: "v1", Title: "Episode 1", EpisodeNumber: 1},
			{VideoID: "v2", Title: "Episode 2", EpisodeNumber: 2},
			{VideoID: "v3", Title: "Episode 3", EpisodeNumber: 3},
		},
	})
	resp, err := http.Post(srv.URL+"/tasks/batch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("batch add returned %d", resp.StatusCode)
	}

	// 2. Start the batch
	resp, err = http.Post(srv.URL+"/tasks/start", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var started api.StartResponse
	json.NewDecoder(resp.Body).Decode(&started)
	resp.Body.Close()
	if started.Queued != 3 {
		t.Fatalf("queued %d tasks, want 3", started.Queued)
	}

	// 3. The bus reports three completions, then the batch settles
	completed := 0
	deadline := time.After(15 * time.Second)
	for completed < 3 {
		select {
		case ev := <-events:
			switch ev.Type {
			case event.TaskCompleted:
				completed++
			case event.TaskFailed:
				t.Fatalf("unexpected failure: %+v", ev.Data)
			}
		case <-deadline:
			t.Fatalf("timed out with %d/3 completions", completed)
		}
	}

	waitType(t, events, event.BatchCompleted)

	// 4. Registry agrees over HTTP
	resp, err = http.Get(srv.URL + "/tasks")
	if err != nil {
		t.Fatal(err)
	}
	var list api.TaskListResponse
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	for _, task := range list.Data {
		if task.Status != model.StatusCompleted {
			t.Errorf("task %s ended as %s", task.ID, task.Status)
		}
	}

	// 5. And the bytes are where they should be
	for i := 1; i <= 3; i++ {
		path := filepath.Join(downloadDir, "Jade Dynasty", fmt.Sprintf("Episode %d.mp4", i))
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing output %s: %v", path, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("corrupted output at %s", path)
		}
	}
}

func waitType(t *testing.T, ch <-chan event.Event, want event.EventType) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}
