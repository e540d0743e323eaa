package view

import (
	"sync"
)

// WriteMode selects how History.Write records an entry.
type WriteMode int

const (
	// WritePush appends a new entry.
	WritePush WriteMode = iota
	// WriteReplace overwrites the current entry.
	WriteReplace
	// WriteBack steps one entry back and overwrites it. Forward entries are
	// kept, and listeners are not notified.
	WriteBack
)

func (m WriteMode) String() string {
	switch m {
	case WriteReplace:
		return "replace"
	case WriteBack:
		return "back"
	default:
		return "push"
	}
}

// Entry is one address-history record.
type Entry struct {
	View  string
	Data  map[string]any
	Token string
}

// History is the address-state adapter the Orchestrator mirrors
// navigations into. External changes (back/forward) are reported through
// OnExternalChange and re-enter NavigateTo with ReplaceHistory set.
type History interface {
	Read() (Entry, bool)
	Write(entry Entry, mode WriteMode) error
	OnExternalChange(fn func(Entry)) (unsubscribe func())
}

// MemoryHistory is an in-process History with back/forward navigation.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []Entry
	index     int
	listeners map[int]func(Entry)
	nextID    int
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		index:     -1,
		listeners: make(map[int]func(Entry)),
	}
}

// Read returns the entry at the cursor.
func (h *MemoryHistory) Read() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return Entry{}, false
	}
	return h.entries[h.index], true
}

// Write records entry at, after or before the cursor depending on mode.
func (h *MemoryHistory) Write(entry Entry, mode WriteMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mode == WriteBack && h.index > 0 {
		h.index--
		h.entries[h.index] = entry
		return nil
	}
	if mode != WritePush && h.index >= 0 {
		h.entries[h.index] = entry
		return nil
	}
	h.entries = append(h.entries[:h.index+1], entry)
	h.index = len(h.entries) - 1
	return nil
}

// OnExternalChange registers fn for Back and Forward moves.
func (h *MemoryHistory) OnExternalChange(fn func(Entry)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Back moves one entry back and notifies listeners. It returns false at
// the oldest entry.
func (h *MemoryHistory) Back() bool {
	return h.move(-1)
}

// Forward moves one entry forward and notifies listeners.
func (h *MemoryHistory) Forward() bool {
	return h.move(1)
}

func (h *MemoryHistory) move(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	entry := h.entries[next]
	listeners := make([]func(Entry), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(entry)
	}
	return true
}

// Len returns the number of recorded entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
