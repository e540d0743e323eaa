package view

// Event names emitted by the Orchestrator.
const (
	EventRegistered   = "view-registered"
	EventUnregistered = "view-unregistered"
	EventChanged      = "view-changed"
	EventError        = "view-error"
	EventUpdated      = "view-updated"
	EventPreloaded    = "view-preloaded"
	EventCacheCleared = "view-cache-cleared"
)

// ChangedEvent is the payload of view-changed.
type ChangedEvent struct {
	From    string
	To      string
	Options NavigateOptions
}

// ErrorEvent is the payload of view-error.
type ErrorEvent struct {
	View string
	Err  error
}

// UpdatedEvent is the payload of view-updated.
type UpdatedEvent struct {
	View string
	Data map[string]any
}
