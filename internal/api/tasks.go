package api

import (
	"net/http"

	"dramadl/internal/model"
	"dramadl/internal/service"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	service *service.DownloadService
}

func NewTaskHandler(s *service.DownloadService) *TaskHandler {
	return &TaskHandler{service: s}
}

func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Post("/batch", h.Batch)
	r.Post("/start", h.Start)
	r.Post("/cancel", h.CancelAll)
	r.Delete("/completed", h.ClearCompleted)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/pause", h.Pause)
	r.Post("/{id}/resume", h.Resume)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

func toDrama(req DramaRequest) model.DramaInfo {
	return model.DramaInfo{
		BookID:       req.BookID,
		Title:        req.Title,
		Cover:        req.Cover,
		EpisodeCount: req.EpisodeCount,
		Intro:        req.Intro,
		Category:     req.Category,
		Author:       req.Author,
	}
}

func toEpisode(req EpisodeRequest) model.EpisodeInfo {
	return model.EpisodeInfo{
		VideoID:       req.VideoID,
		Title:         req.Title,
		EpisodeNumber: req.EpisodeNumber,
	}
}

func (h *TaskHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, added := h.service.Add(toDrama(req.Drama), toEpisode(req.Episode))
	if !added {
		// Same episode already queued; report the existing task
		sendJSON(w, TaskResponse{Data: task.Snapshot()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSON(w, TaskResponse{Data: task.Snapshot()})
}

func (h *TaskHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchAddRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	episodes := make([]model.EpisodeInfo, 0, len(req.Episodes))
	for _, ep := range req.Episodes {
		episodes = append(episodes, toEpisode(ep))
	}

	added := h.service.AddMany(toDrama(req.Drama), episodes)
	out := make([]model.TaskSnapshot, 0, len(added))
	for _, t := range added {
		out = append(out, t.Snapshot())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSON(w, AddedResponse{Data: out, Added: len(out)})
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get(ParamStatus)

	tasks := h.service.List()
	if status != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	sendJSON(w, TaskListResponse{
		Data: tasks,
		Meta: Meta{Total: len(tasks)},
	})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, ParamID)
	task, err := h.service.Get(id)
	if err != nil {
		sendAppError(w, err)
		return
	}
	sendJSON(w, TaskResponse{Data: task})
}

func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Start()
	if err != nil {
		sendAppError(w, err)
		return
	}
	sendJSON(w, StartResponse{Queued: n})
}

func (h *TaskHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, ParamID)
	if err := h.service.Pause(id); err != nil {
		sendAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, ParamID)
	if err := h.service.Resume(id); err != nil {
		sendAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, ParamID)
	if err := h.service.Cancel(id); err != nil {
		sendAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	h.service.CancelAll()
	w.WriteHeader(http.StatusOK)
}

func (h *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, ClearResponse{Removed: h.service.ClearCompleted()})
}
