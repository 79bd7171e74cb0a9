package model

// DramaInfo describes a short-drama series as returned by a data provider.
type DramaInfo struct {
	BookID       string `json:"bookId"`
	Title        string `json:"title"`
	Cover        string `json:"cover,omitempty"`
	EpisodeCount int    `json:"episodeCount,omitempty"`
	Intro        string `json:"intro,omitempty"`
	Category     string `json:"category,omitempty"`
	Author       string `json:"author,omitempty"`
}

// EpisodeInfo describes a single episode within a drama.
type EpisodeInfo struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
}

// VideoInfo is the result of resolving an episode to a playable URL.
type VideoInfo struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
}
