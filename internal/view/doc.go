// Package view coordinates named screens: which one is active, how the
// next one is rendered and swapped in, and how navigation is mirrored into
// an address history.
//
// An Orchestrator is also an event bus. It emits:
//
//	view-registered     name string
//	view-unregistered   name string
//	view-changed        ChangedEvent
//	view-error          ErrorEvent
//	view-updated        UpdatedEvent
//	view-preloaded      name string
//	view-cache-cleared  []string
//
// Only one navigation runs at a time. A NavigateTo call made while another
// is in flight is rejected, never queued.
package view
