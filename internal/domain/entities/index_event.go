package entities

import (
	"time"

	"github.com/google/uuid"
)

// IndexEventType represents what happened to the search index
type IndexEventType string

const (
	// IndexEventUpdated is sent after documents were added or changed
	IndexEventUpdated IndexEventType = "index_updated"
	// IndexEventCacheFlush asks every instance to drop cached responses
	IndexEventCacheFlush IndexEventType = "cache_flush"
)

// IndexEvent notifies search instances that cached results went stale
type IndexEvent struct {
	ID        string         `json:"id"`
	EventType IndexEventType `json:"event_type"`
	// Source names the instance or job that published the event
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewIndexEvent creates a new index event
func NewIndexEvent(eventType IndexEventType, source string) *IndexEvent {
	return &IndexEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}
