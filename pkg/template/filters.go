package template

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// pongo2 keeps a single process-wide filter table and validates filter names
// at parse time. Custom filters are therefore installed once as trampolines
// that dispatch to whichever filters the executing render supplied. Parsing
// and execution happen while holding mu, so a render only ever sees its own
// filters.
var filters = &filterRegistry{
	owned: make(map[string]struct{}),
}

type filterRegistry struct {
	mu     sync.Mutex
	owned  map[string]struct{}
	active map[string]Filter
}

// with installs the supplied filters for the duration of fn.
func (r *filterRegistry) with(set map[string]Filter, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range set {
		if err := r.install(name); err != nil {
			return err
		}
	}

	r.active = set
	defer func() { r.active = nil }()

	return fn()
}

func (r *filterRegistry) install(name string) error {
	if _, ok := r.owned[name]; ok {
		return nil
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("template: filter %q already exists", name)
	}
	if err := pongo2.RegisterFilter(name, r.trampoline(name)); err != nil {
		return fmt.Errorf("template: register filter %q: %w", name, err)
	}
	r.owned[name] = struct{}{}
	return nil
}

func (r *filterRegistry) trampoline(name string) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		fn, ok := r.active[name]
		if !ok || fn == nil {
			return nil, &pongo2.Error{
				Sender:    "filter:" + name,
				OrigError: fmt.Errorf("filter %q is not registered for this render", name),
			}
		}

		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}
}

var registerDefaults sync.Once

// registerDefaultFilters also turns off HTML autoescaping: rendered output is
// configuration, not markup.
func registerDefaultFilters() {
	registerDefaults.Do(func() {
		pongo2.SetAutoescape(false)
		if !pongo2.FilterExists("trim") {
			_ = pongo2.RegisterFilter("trim", filterTrim)
		}
	})
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}
