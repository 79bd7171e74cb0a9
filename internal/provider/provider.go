// Package provider defines the inbound collaborator contract of the download
// core: turning an episode id and a quality label into a playable URL. The
// vendor-specific adapters behind this interface live outside this service;
// the download manager receives a Provider by injection and never consults a
// process-wide registry.
package provider

import (
	"context"

	"dramadl/internal/model"
)

type Provider interface {
	// Name identifies the adapter, used for logging only.
	Name() string

	// GetVideoURL resolves an episode to a playable URL for the given
	// quality label. Failure means the caller's task fails; there is no
	// retry at this layer.
	GetVideoURL(ctx context.Context, episodeID, quality string) (*model.VideoInfo, error)
}
