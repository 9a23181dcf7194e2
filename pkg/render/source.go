package render

import (
	"github.com/flosch/pongo2/v6"
)

// SourceKind enumerates the ways a caller can identify a template.
type SourceKind string

const (
	// SourceKindName resolves a template by name through a loader or a
	// templates directory.
	SourceKindName SourceKind = "name"
	// SourceKindInline renders template text supplied by the caller.
	SourceKindInline SourceKind = "inline"
	// SourceKindTemplate renders a template the caller already parsed.
	SourceKindTemplate SourceKind = "template"
)

// Source identifies the template a Request renders.
type Source interface {
	Kind() SourceKind
	Location() string
}

// nameSource references a template by name.
type nameSource struct {
	name string
}

func (s nameSource) Location() string {
	return s.name
}

func (s nameSource) Kind() SourceKind {
	return SourceKindName
}

// SourceFromName returns a Source resolved by name at render time.
func SourceFromName(name string) Source {
	return nameSource{name: name}
}

// inlineSource carries template text.
type inlineSource struct {
	text string
}

func (s inlineSource) Location() string {
	return "<inline>"
}

func (s inlineSource) Kind() SourceKind {
	return SourceKindInline
}

// SourceFromString returns a Source for inline template text.
func SourceFromString(text string) Source {
	return inlineSource{text: text}
}

// compiledSource wraps a pre-built template.
type compiledSource struct {
	tpl *pongo2.Template
}

func (s compiledSource) Location() string {
	return "<template>"
}

func (s compiledSource) Kind() SourceKind {
	return SourceKindTemplate
}

// SourceFromTemplate returns a Source for a template parsed by the caller.
// Custom filters it uses must exist when it is parsed.
func SourceFromTemplate(tpl *pongo2.Template) Source {
	return compiledSource{tpl: tpl}
}
