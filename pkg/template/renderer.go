package template

import (
	"io"

	"github.com/flosch/pongo2/v6"
)

// Renderer is what the charm render operation needs from an engine. Engine
// implements it.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RenderCompiled(tpl *pongo2.Template, data any, out ...io.Writer) (string, error)
	HasTemplate(name string) (bool, error)
	MissingTemplate(err error) (string, bool)
	RegisterFilter(name string, fn Filter) error
	RegisterTest(name string, fn Test) error
	GlobalContext(data any) error
}

// Filter transforms a template value. It receives the piped input and the
// optional filter argument (`{{ value|name:param }}`).
type Filter func(input any, param any) (any, error)

// Test is a predicate over a template value. pongo2 has no `is` operator, so
// tests are exposed as callables in the render context: `{% if name(value) %}`.
// A test takes precedence over a context value of the same name.
type Test func(value any, args ...any) (bool, error)
