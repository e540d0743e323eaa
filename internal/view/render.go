package view

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/zjrosen/waypoint/internal/log"
)

// Content is what a view renders. Body is markdown.
type Content struct {
	Title    string
	Body     string
	Fallback bool
}

// RenderFunc produces a view's content for one navigation.
type RenderFunc func(ctx context.Context, opts NavigateOptions) (Content, error)

// ReloadHint is shown on fallback content.
const ReloadHint = "Press r to reload this view."

// FallbackContent is the error panel shown in place of a view whose
// Render failed.
func FallbackContent(view string, err error) Content {
	return Content{
		Title: "Something went wrong",
		Body: fmt.Sprintf("## Could not display %s\n\n```\n%v\n```\n\n%s",
			view, err, ReloadHint),
		Fallback: true,
	}
}

type renderRequest struct {
	reg  *Registration
	opts NavigateOptions
}

// renderResult holds either content or the error that prevented it.
type renderResult struct {
	content Content
	err     *RenderError
}

func (r renderResult) ok() bool { return r.err == nil }

// contentOrFallback resolves the result into displayable content.
func (r renderResult) contentOrFallback(view string) Content {
	if r.err != nil {
		return FallbackContent(view, r.err.Err)
	}
	return r.content
}

// render calls the registration's Render under its render lock. Panics are
// converted into a RenderError.
func render(ctx context.Context, req renderRequest) (res renderResult) {
	reg := req.reg
	reg.renderMu.Lock()
	defer reg.renderMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatView, "Render panicked", "view", reg.name, "panic", r, "stack", string(debug.Stack()))
			res = renderResult{err: &RenderError{View: reg.name, Err: fmt.Errorf("panic: %v", r)}}
		}
	}()

	content, err := reg.config.Render(ctx, req.opts)
	if err != nil {
		return renderResult{err: &RenderError{View: reg.name, Err: err}}
	}
	return renderResult{content: content}
}

// loadContent adapts render to the read-through cache loader shape.
func loadContent(ctx context.Context, req renderRequest) (Content, error) {
	res := render(ctx, req)
	if !res.ok() {
		return Content{}, res.err
	}
	return res.content, nil
}

// asRenderResult maps a loader error back into a renderResult.
func asRenderResult(view string, content Content, err error) renderResult {
	if err == nil {
		return renderResult{content: content}
	}
	var rerr *RenderError
	if errors.As(err, &rerr) {
		return renderResult{err: rerr}
	}
	return renderResult{err: &RenderError{View: view, Err: err}}
}
