// Package templating renders charm templates with the charm configuration
// mapped in under the `config` key and optionally writes the output to disk
// with the requested ownership and mode.
package templating

import (
	"context"

	"github.com/goliatone/go-charm-templating/pkg/render"
	"github.com/goliatone/go-charm-templating/pkg/template"
)

// Request aliases render.Request for callers that only import the root
// package.
type Request = render.Request

// Filter aliases template.Filter.
type Filter = template.Filter

// Test aliases template.Test.
type Test = template.Test

// ErrTemplateNotFound matches any template lookup miss.
var ErrTemplateNotFound = render.ErrTemplateNotFound

// NewRenderer exposes the renderer constructor from the top-level module.
func NewRenderer(options ...render.Option) *render.Renderer {
	return render.New(options...)
}

// Render builds a renderer from options and renders req with it.
func Render(ctx context.Context, req Request, options ...render.Option) (string, error) {
	return render.New(options...).Render(ctx, req)
}

// RenderFile renders the named template from the default templates
// directory.
func RenderFile(ctx context.Context, name string, data map[string]any, options ...render.Option) (string, error) {
	return Render(ctx, Request{
		Source:  render.SourceFromName(name),
		Context: data,
	}, options...)
}

// RenderString renders inline template text.
func RenderString(ctx context.Context, text string, data map[string]any, options ...render.Option) (string, error) {
	return Render(ctx, Request{
		Source:  render.SourceFromString(text),
		Context: data,
	}, options...)
}
