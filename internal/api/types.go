package api

import "dramadl/internal/model"

// Tasks
type DramaRequest struct {
	BookID       string `json:"bookId" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Cover        string `json:"cover"`
	EpisodeCount int    `json:"episodeCount"`
	Intro        string `json:"intro"`
	Category     string `json:"category"`
	Author       string `json:"author"`
}

type EpisodeRequest struct {
	VideoID       string `json:"videoId" validate:"required"`
	Title         string `json:"title" validate:"required"`
	EpisodeNumber int    `json:"episodeNumber"`
}

type AddTaskRequest struct {
	Drama   DramaRequest   `json:"drama" validate:"required"`
	Episode EpisodeRequest `json:"episode" validate:"required"`
}

type BatchAddRequest struct {
	Drama    DramaRequest     `json:"drama" validate:"required"`
	Episodes []EpisodeRequest `json:"episodes" validate:"required,min=1,dive"`
}

type TaskResponse struct {
	Data model.TaskSnapshot `json:"data"`
}

type TaskListResponse struct {
	Data []model.TaskSnapshot `json:"data"`
	Meta Meta                 `json:"meta"`
}

type Meta struct {
	Total int `json:"total"`
}

type AddedResponse struct {
	Data  []model.TaskSnapshot `json:"data"`
	Added int                  `json:"added"`
}

type StartResponse struct {
	Queued int `json:"queued"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

// Settings
type SettingsResponse struct {
	DownloadDir   string `json:"downloadDir"`
	Quality       string `json:"quality"`
	MaxConcurrent int    `json:"maxConcurrent"`
	SpeedLimit    int64  `json:"speedLimit"`
	Running       bool   `json:"running"`
}

type UpdateSettingsRequest struct {
	MaxConcurrent *int   `json:"maxConcurrent" validate:"omitempty,min=1,max=10"`
	SpeedLimit    *int64 `json:"speedLimit" validate:"omitempty,min=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
