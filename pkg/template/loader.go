package template

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// MapLoader serves templates from memory, keyed by name. Names are used
// verbatim; includes and extends resolve against the same map.
type MapLoader map[string]string

var _ pongo2.TemplateLoader = MapLoader(nil)

// NewMapLoader copies templates into a MapLoader.
func NewMapLoader(templates map[string]string) MapLoader {
	out := make(MapLoader, len(templates))
	for name, body := range templates {
		out[strings.TrimPrefix(path.Clean(name), "/")] = body
	}
	return out
}

// Abs returns name unchanged.
func (l MapLoader) Abs(_, name string) string {
	return strings.TrimPrefix(path.Clean(name), "/")
}

// Get returns the template body or an error wrapping fs.ErrNotExist.
func (l MapLoader) Get(name string) (io.Reader, error) {
	body, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("template: %q: %w", name, fs.ErrNotExist)
	}
	return strings.NewReader(body), nil
}

// Names lists the templates held by the loader in lexical order.
func (l MapLoader) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// probe reports whether loader can produce the named template. Only
// fs.ErrNotExist counts as a miss; any other failure is returned.
func probe(loader pongo2.TemplateLoader, name string) (bool, error) {
	return exists(loader, loader.Abs("", name))
}

// exists is probe for a path the loader has already resolved.
func exists(loader pongo2.TemplateLoader, path string) (bool, error) {
	r, err := loader.Get(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if closer, ok := r.(io.Closer); ok {
		_ = closer.Close()
	}
	return true, nil
}
