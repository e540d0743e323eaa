package view

import (
	"sync"

	"github.com/google/uuid"
)

// Phase is the presentation state of an Element.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseEntering
	PhaseActive
	PhaseExiting
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseEntering:
		return "entering"
	case PhaseActive:
		return "active"
	case PhaseExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Element is one rendered instance of a view.
type Element struct {
	ID      string
	View    string
	Content Content
	Variant Variant

	mu       sync.Mutex
	phase    Phase
	hidden   bool
	cleanups []func()
}

func newElement(view string, content Content, variant Variant) *Element {
	return &Element{
		ID:      uuid.NewString(),
		View:    view,
		Content: content,
		Variant: variant,
	}
}

// Phase returns the current presentation phase.
func (e *Element) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Hidden reports whether the element is retained off-screen.
func (e *Element) Hidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hidden
}

// OnCleanup registers fn to run when the element is released.
func (e *Element) OnCleanup(fn func()) {
	e.mu.Lock()
	e.cleanups = append(e.cleanups, fn)
	e.mu.Unlock()
}

// cleanup runs and clears the registered cleanup funcs.
func (e *Element) cleanup() {
	e.mu.Lock()
	fns := e.cleanups
	e.cleanups = nil
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// StageListener observes phase changes on a Stage.
type StageListener func(el *Element, from, to Phase)

// Stage is the mount target that owns view elements.
type Stage struct {
	name string

	mu        sync.RWMutex
	elements  []*Element
	listeners []StageListener
}

// NewStage creates an empty stage.
func NewStage(name string) *Stage {
	return &Stage{name: name}
}

// Name returns the container name.
func (s *Stage) Name() string { return s.name }

// Observe registers fn for every phase change.
func (s *Stage) Observe(fn StageListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// attach mounts el, or unhides it when already mounted.
func (s *Stage) attach(el *Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el.mu.Lock()
	el.hidden = false
	el.mu.Unlock()

	for _, existing := range s.elements {
		if existing == el {
			return
		}
	}
	s.elements = append(s.elements, el)
}

// detach unmounts el.
func (s *Stage) detach(el *Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.elements {
		if existing == el {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			return
		}
	}
}

// hide keeps el mounted but off-screen.
func (s *Stage) hide(el *Element) {
	el.mu.Lock()
	el.hidden = true
	el.mu.Unlock()
}

func (s *Stage) setPhase(el *Element, phase Phase) {
	el.mu.Lock()
	from := el.phase
	el.phase = phase
	el.mu.Unlock()

	if from == phase {
		return
	}

	s.mu.RLock()
	listeners := append([]StageListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(el, from, phase)
	}
}

// Elements returns the mounted elements in mount order.
func (s *Stage) Elements() []*Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Element(nil), s.elements...)
}

// Active returns the element in PhaseActive, if any.
func (s *Stage) Active() *Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, el := range s.elements {
		if el.Phase() == PhaseActive {
			return el
		}
	}
	return nil
}

// ActiveCount returns how many mounted elements are in PhaseActive.
func (s *Stage) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, el := range s.elements {
		if el.Phase() == PhaseActive {
			n++
		}
	}
	return n
}
