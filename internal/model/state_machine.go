package model

import "fmt"

// ValidTransitions defines allowed state transitions
var ValidTransitions = map[TaskStatus][]TaskStatus{
	StatusPending:     {StatusFetching, StatusPaused, StatusCancelled},
	StatusFetching:    {StatusDownloading, StatusPaused, StatusFailed, StatusCancelled},
	StatusDownloading: {StatusCompleted, StatusPaused, StatusFailed, StatusCancelled},
	StatusPaused:      {StatusPending, StatusCancelled}, // resume re-enters the admission queue
	StatusCompleted:   {},
	StatusFailed:      {},
	StatusCancelled:   {},
	"":                {StatusPending}, // initial state
}

func CanTransition(from, to TaskStatus) bool {
	allowed, exists := ValidTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}
