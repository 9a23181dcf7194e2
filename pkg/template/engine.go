package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Option configures the Engine before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	loader     pongo2.TemplateLoader
	extension  string
	filters    map[string]Filter
	tests      map[string]Test
	globalData map[string]any
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithLoader installs a caller supplied pongo2 loader. It takes precedence
// over WithBaseDir and WithFS.
func WithLoader(loader pongo2.TemplateLoader) Option {
	return func(cfg *config) {
		cfg.loader = loader
	}
}

// WithExtension appends ext to template names that do not already carry it.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithFilters registers filters visible to templates rendered by this engine.
func WithFilters(filters map[string]Filter) Option {
	return func(cfg *config) {
		if len(filters) == 0 {
			return
		}
		if cfg.filters == nil {
			cfg.filters = make(map[string]Filter, len(filters))
		}
		for name, fn := range filters {
			cfg.filters[strings.TrimSpace(name)] = fn
		}
	}
}

// WithTests registers test predicates visible to templates rendered by this
// engine.
func WithTests(tests map[string]Test) Option {
	return func(cfg *config) {
		if len(tests) == 0 {
			return
		}
		if cfg.tests == nil {
			cfg.tests = make(map[string]Test, len(tests))
		}
		for name, fn := range tests {
			cfg.tests[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Engine renders pongo2 templates with per-engine filters, tests and global
// data.
type Engine struct {
	mu sync.RWMutex

	loader      pongo2.TemplateLoader
	templateSet *pongo2.TemplateSet
	templates   map[string]*pongo2.Template
	tplExt      string

	filters map[string]Filter
	tests   map[string]Test
	globals pongo2.Context
}

var _ Renderer = (*Engine)(nil)

// New constructs an Engine. Without a loader, base dir or fs.FS the engine
// only renders inline and pre-built templates.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	loader, err := selectLoader(cfg)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		loader:      loader,
		templateSet: pongo2.NewSet("charm", loader),
		templates:   make(map[string]*pongo2.Template),
		tplExt:      cfg.extension,
		filters:     make(map[string]Filter, len(cfg.filters)),
		tests:       make(map[string]Test, len(cfg.tests)),
		globals:     make(pongo2.Context),
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("template: apply global data: %w", err)
	}
	for name, fn := range cfg.filters {
		if err := engine.RegisterFilter(name, fn); err != nil {
			return nil, err
		}
	}
	for name, fn := range cfg.tests {
		if err := engine.RegisterTest(name, fn); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

func selectLoader(cfg *config) (pongo2.TemplateLoader, error) {
	switch {
	case cfg.loader != nil:
		return cfg.loader, nil
	case cfg.baseDir != "":
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("template: create local loader: %w", err)
		}
		return loader, nil
	case cfg.templates != nil:
		return pongo2.NewFSLoader(cfg.templates), nil
	default:
		return MapLoader{}, nil
	}
}

// Render renders name as inline content when it looks like template source,
// otherwise it loads the named template.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if isTemplateContent(name) {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate loads the named template through the engine loader.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("template: engine is nil")
	}
	templatePath := e.templateName(name)

	return e.execute(func() (*pongo2.Template, error) {
		return e.getTemplate(templatePath)
	}, fmt.Sprintf("template %q", templatePath), data, out)
}

// RenderString parses and renders inline template content.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("template: engine is nil")
	}

	return e.execute(func() (*pongo2.Template, error) {
		tmpl, err := e.templateSet.FromString(templateContent)
		if err != nil {
			return nil, fmt.Errorf("template: parse template string: %w", err)
		}
		return tmpl, nil
	}, "template string", data, out)
}

// RenderCompiled renders a template parsed by the caller. Filters the
// template uses must have been registered when it was parsed.
func (e *Engine) RenderCompiled(tpl *pongo2.Template, data any, out ...io.Writer) (string, error) {
	if e == nil {
		return "", errors.New("template: engine is nil")
	}
	if tpl == nil {
		return "", errors.New("template: compiled template is nil")
	}

	return e.execute(func() (*pongo2.Template, error) {
		return tpl, nil
	}, "compiled template", data, out)
}

// HasTemplate reports whether the engine loader can produce name.
func (e *Engine) HasTemplate(name string) (bool, error) {
	if e == nil || e.loader == nil {
		return false, errors.New("template: engine is nil")
	}
	return probe(e.loader, e.templateName(name))
}

// MissingTemplate reports the template err failed to load because the engine
// loader does not have it. This covers names reached through include and
// extends as well as the top-level one. The name is the loader-resolved path.
func (e *Engine) MissingTemplate(err error) (string, bool) {
	if e == nil || e.loader == nil || err == nil {
		return "", false
	}
	var perr *pongo2.Error
	if !errors.As(err, &perr) || perr.Sender != "fromfile" || perr.Filename == "" {
		return "", false
	}
	ok, probeErr := exists(e.loader, perr.Filename)
	if probeErr != nil || ok {
		return "", false
	}
	return perr.Filename, true
}

// RegisterFilter adds a filter scoped to this engine.
func (e *Engine) RegisterFilter(name string, fn Filter) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("template: filter name and function required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
	return nil
}

// RegisterTest adds a test predicate scoped to this engine.
func (e *Engine) RegisterTest(name string, fn Test) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("template: test name and function required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tests[name] = fn
	return nil
}

// GlobalContext merges data into the values every render receives.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("template: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals.Update(globalCtx)
	return nil
}

func (e *Engine) execute(load func() (*pongo2.Template, error), label string, data any, out []io.Writer) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("template: convert data: %w", err)
	}

	e.mu.RLock()
	active := make(map[string]Filter, len(e.filters))
	for name, fn := range e.filters {
		active[name] = fn
	}
	execCtx := make(pongo2.Context, len(e.tests)+len(e.globals)+len(viewContext))
	execCtx.Update(e.globals)
	execCtx.Update(viewContext)
	// Tests share the variable namespace; they win over data keys.
	for name, fn := range e.tests {
		execCtx[name] = fn
	}
	e.mu.RUnlock()

	var buf bytes.Buffer
	err = filters.with(active, func() error {
		tmpl, err := load()
		if err != nil {
			return err
		}
		if err := tmpl.ExecuteWriter(execCtx, &buf); err != nil {
			return fmt.Errorf("template: execute %s: %w", label, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func (e *Engine) templateName(name string) string {
	if e.tplExt != "" && !strings.HasSuffix(name, e.tplExt) {
		return name + e.tplExt
	}
	return name
}

func (e *Engine) getTemplate(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[path]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[path]; ok {
		return tmpl, nil
	}

	tmpl, err := e.templateSet.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: load template %q: %w", path, err)
	}

	e.templates[path] = tmpl
	return tmpl, nil
}

func isTemplateContent(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}
