package api

import (
	"net/http"

	"dramadl/internal/service"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	service *service.DownloadService
}

func NewSettingsHandler(s *service.DownloadService) *SettingsHandler {
	return &SettingsHandler{service: s}
}

func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Patch("/", h.Update)
	return r
}

func (h *SettingsHandler) snapshot() SettingsResponse {
	return SettingsResponse{
		DownloadDir:   h.service.DownloadDir(),
		Quality:       h.service.Quality(),
		MaxConcurrent: h.service.MaxConcurrent(),
		SpeedLimit:    h.service.SpeedLimit(),
		Running:       h.service.Running(),
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.snapshot())
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.MaxConcurrent != nil {
		h.service.SetMaxConcurrent(*req.MaxConcurrent)
	}
	if req.SpeedLimit != nil {
		h.service.SetSpeedLimit(*req.SpeedLimit)
	}

	sendJSON(w, h.snapshot())
}
