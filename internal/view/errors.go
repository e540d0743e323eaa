package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/waypoint/internal/eventbus"
)

var (
	// ErrInvalidArgument is returned for malformed registrations.
	ErrInvalidArgument = eventbus.ErrInvalidArgument

	// ErrViewNotFound matches any *ViewNotFoundError.
	ErrViewNotFound = errors.New("view not found")

	// ErrMissingRequiredData matches any *MissingDataError.
	ErrMissingRequiredData = errors.New("missing required data")

	// ErrNavigationInProgress is advisory. NavigateTo only returns it when
	// NavigateOptions.Strict is set.
	ErrNavigationInProgress = errors.New("navigation in progress")

	// ErrRenderFailed matches any *RenderError.
	ErrRenderFailed = errors.New("render failed")
)

// ViewNotFoundError reports a navigation to an unregistered name.
type ViewNotFoundError struct {
	View string
}

func (e *ViewNotFoundError) Error() string {
	return fmt.Sprintf("view %q not found", e.View)
}

func (e *ViewNotFoundError) Is(target error) bool {
	return target == ErrViewNotFound
}

// MissingDataError lists the required data keys absent from a navigation.
type MissingDataError struct {
	View string
	Keys []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("view %q: missing required data: %s", e.View, strings.Join(e.Keys, ", "))
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingRequiredData
}

// RenderError wraps a failed or panicking Render. It is recovered into
// fallback content and reported through view-error.
type RenderError struct {
	View string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.View, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRenderFailed
}
