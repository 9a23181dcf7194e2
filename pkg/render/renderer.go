package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-charm-templating/pkg/hookenv"
	"github.com/goliatone/go-charm-templating/pkg/host"
	"github.com/goliatone/go-charm-templating/pkg/template"
)

const (
	// ConfigKey is the reserved context key holding the configuration mapping.
	ConfigKey = "config"

	DefaultOwner             = "root"
	DefaultGroup             = "root"
	DefaultPerms fs.FileMode = 0o444
)

// FileWriter persists rendered output.
type FileWriter interface {
	WriteFile(path string, content []byte, own host.Ownership, perm fs.FileMode) error
}

// FileWriterFunc adapts a function to FileWriter.
type FileWriterFunc func(path string, content []byte, own host.Ownership, perm fs.FileMode) error

func (f FileWriterFunc) WriteFile(path string, content []byte, own host.Ownership, perm fs.FileMode) error {
	return f(path, content, own, perm)
}

// HostWriter writes through host.WriteFile.
var HostWriter = FileWriterFunc(host.WriteFile)

// Option customises the Renderer.
type Option func(*Renderer)

// WithConfigProvider sets where the `config` mapping comes from.
func WithConfigProvider(provider hookenv.ConfigProvider) Option {
	return func(r *Renderer) {
		r.config = provider
	}
}

// WithCharmDir sets the provider used to derive the default templates
// directory.
func WithCharmDir(provider hookenv.CharmDirProvider) Option {
	return func(r *Renderer) {
		r.charmDir = provider
	}
}

// WithLogger sets the logger used to report lookup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithFileWriter replaces the writer used when a Request has a Target.
func WithFileWriter(writer FileWriter) Option {
	return func(r *Renderer) {
		r.writer = writer
	}
}

// Renderer resolves templates, merges the caller context with the charm
// configuration and optionally writes the result to disk.
type Renderer struct {
	config   hookenv.ConfigProvider
	charmDir hookenv.CharmDirProvider
	logger   *slog.Logger
	writer   FileWriter
}

// New constructs a Renderer. Missing dependencies default to the config-get
// hook tool, the charm dir from the environment, slog.Default and
// HostWriter.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.config == nil {
		r.config = hookenv.CommandConfig{}
	}
	if r.charmDir == nil {
		r.charmDir = hookenv.EnvCharmDir
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.writer == nil {
		r.writer = HostWriter
	}
	return r
}

// Request describes a single render call.
type Request struct {
	// Source identifies the template. Required.
	Source Source

	// Target, when set, is the path the rendered output is written to.
	Target string

	// Context holds template variables. The ConfigKey entry is always
	// replaced by the configuration mapping.
	Context map[string]any

	// Owner, Group and Perms apply to Target and to any directory created for
	// it. They default to DefaultOwner, DefaultGroup and DefaultPerms. A zero
	// Perms selects DefaultPerms, so mode 0000 cannot be requested.
	Owner string
	Group string
	Perms fs.FileMode

	// TemplatesDir is searched for named templates. Defaults to the templates
	// directory below the charm dir. When FS is set it names a sub-directory
	// of FS instead.
	TemplatesDir string
	FS           fs.FS

	// Loader looks up named templates, bypassing TemplatesDir and FS.
	Loader pongo2.TemplateLoader

	// Extension is appended to template names that lack it.
	Extension string

	Filters map[string]template.Filter

	// Tests are callable by name from the template and shadow context keys
	// of the same name. A test may not be named ConfigKey.
	Tests map[string]template.Test
}

// newEngine builds the engine for one render call.
func newEngine(options ...template.Option) (template.Renderer, error) {
	return template.New(options...)
}

// Render renders req and returns the output. When req.Target is set the
// output is also written to disk.
func (r *Renderer) Render(ctx context.Context, req Request) (string, error) {
	if req.Source == nil {
		return "", ErrInvalidSource
	}
	if _, ok := req.Tests[ConfigKey]; ok {
		return "", fmt.Errorf("%w: test name %q is reserved", ErrInvalidRequest, ConfigKey)
	}

	cfg, err := r.config.Config(ctx)
	if err != nil {
		return "", fmt.Errorf("render: load config: %w", err)
	}
	data := mergeContext(req.Context, cfg)

	out, err := r.execute(req, data)
	if err != nil {
		return "", err
	}

	if req.Target != "" {
		if err := r.write(req, out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func mergeContext(callerCtx map[string]any, cfg map[string]any) map[string]any {
	if cfg == nil {
		cfg = map[string]any{}
	}
	data := make(map[string]any, len(callerCtx)+1)
	for key, value := range callerCtx {
		data[key] = value
	}
	data[ConfigKey] = cfg
	return data
}

func (r *Renderer) execute(req Request, data map[string]any) (string, error) {
	options := []template.Option{
		template.WithFilters(req.Filters),
		template.WithTests(req.Tests),
		template.WithExtension(req.Extension),
	}

	switch src := req.Source.(type) {
	case inlineSource:
		engine, err := newEngine(options...)
		if err != nil {
			return "", fmt.Errorf("render: %w", err)
		}
		return engine.RenderString(src.text, data)

	case compiledSource:
		if src.tpl == nil {
			return "", ErrInvalidSource
		}
		engine, err := newEngine(options...)
		if err != nil {
			return "", fmt.Errorf("render: %w", err)
		}
		return engine.RenderCompiled(src.tpl, data)

	case nameSource:
		return r.executeNamed(req, strings.TrimSpace(src.name), data, options)

	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidSource, req.Source.Kind())
	}
}

func (r *Renderer) executeNamed(req Request, name string, data map[string]any, options []template.Option) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty template name", ErrInvalidSource)
	}

	var dir string
	switch {
	case req.Loader != nil:
		options = append(options, template.WithLoader(req.Loader))
	case req.FS != nil:
		dir = req.TemplatesDir
		files := req.FS
		if dir != "" {
			sub, err := fs.Sub(req.FS, dir)
			if err != nil {
				return "", fmt.Errorf("render: templates fs %s: %w", dir, err)
			}
			files = sub
		}
		options = append(options, template.WithFS(files))
	default:
		dir = req.TemplatesDir
		if dir == "" {
			dir = hookenv.TemplatesDir(r.charmDir)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			if err == nil || errors.Is(err, fs.ErrNotExist) {
				return "", r.notFound(name, dir)
			}
			return "", fmt.Errorf("render: templates dir %s: %w", dir, err)
		}
		options = append(options, template.WithBaseDir(dir))
	}

	engine, err := newEngine(options...)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	ok, err := engine.HasTemplate(name)
	if err != nil {
		return "", fmt.Errorf("render: lookup template %q: %w", name, err)
	}
	if !ok {
		return "", r.notFound(name, dir)
	}
	out, err := engine.RenderTemplate(name, data)
	if missing, ok := engine.MissingTemplate(err); ok {
		return "", r.notFound(relativeName(dir, missing), dir)
	}
	return out, err
}

// relativeName reports a loader-resolved path relative to dir when it lies
// below it.
func relativeName(dir, resolved string) string {
	if dir == "" || !filepath.IsAbs(resolved) {
		return resolved
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return resolved
	}
	rel, err := filepath.Rel(base, resolved)
	if err != nil || strings.HasPrefix(rel, "..") {
		return resolved
	}
	return rel
}

func (r *Renderer) notFound(name, dir string) error {
	r.logger.Error("could not load template", "template", name, "dir", dir)
	return &TemplateNotFoundError{Name: name, Dir: dir}
}

func (r *Renderer) write(req Request, out string) error {
	own := host.Ownership{Owner: req.Owner, Group: req.Group}
	if own.Owner == "" {
		own.Owner = DefaultOwner
	}
	if own.Group == "" {
		own.Group = DefaultGroup
	}
	perms := req.Perms
	if perms == 0 {
		perms = DefaultPerms
	}

	if err := r.writer.WriteFile(req.Target, []byte(out), own, perms); err != nil {
		return fmt.Errorf("render: write %s: %w", req.Target, err)
	}
	return nil
}
