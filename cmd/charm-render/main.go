package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-charm-templating/pkg/hookenv"
	"github.com/goliatone/go-charm-templating/pkg/render"
)

type options struct {
	inline         bool
	output         string
	templatesDir   string
	charmDir       string
	configDefaults string
	configValues   string
	configGet      bool
	contextFile    string
	set            []string
	owner          string
	group          string
	perms          string
	extension      string
	logLevel       string
	confirm        bool
}

// confirmOverwrite asks before replacing path; swapped out in tests.
var confirmOverwrite = func(path string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Overwrite %s?", path),
		Default: false,
	}, &ok)
	return ok, err
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "charm-render TEMPLATE",
		Short: "Render a charm template with the charm configuration",
		Long: `charm-render renders a template from the charm templates directory (or
inline text with --inline). The charm configuration is available to the
template under the "config" key. With --output the result is written to disk
with the requested owner, group and mode; otherwise it is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0], stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.inline, "inline", false, "treat TEMPLATE as template text instead of a name")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	flags.StringVar(&opts.templatesDir, "templates-dir", "", "template search directory (default <charm dir>/templates)")
	flags.StringVar(&opts.charmDir, "charm-dir", "", "charm directory (default $CHARM_DIR)")
	flags.StringVar(&opts.configDefaults, "config-defaults", "", "charm config.yaml supplying option defaults")
	flags.StringVar(&opts.configValues, "config-values", "", "JSON or YAML file with configuration values")
	flags.BoolVar(&opts.configGet, "config-get", false, "read configuration from the config-get hook tool")
	flags.StringVar(&opts.contextFile, "context-file", "", "JSON or YAML file with template variables")
	flags.StringArrayVar(&opts.set, "set", nil, "template variable as key=value (repeatable)")
	flags.StringVar(&opts.owner, "owner", render.DefaultOwner, "output file owner")
	flags.StringVar(&opts.group, "group", render.DefaultGroup, "output file group")
	flags.StringVar(&opts.perms, "perms", "0444", "output file mode (octal)")
	flags.StringVar(&opts.extension, "ext", "", "extension appended to template names")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.confirm, "confirm", false, "prompt before overwriting an existing output file")

	return cmd
}

func run(ctx context.Context, opts *options, tmpl string, stdout, stderr io.Writer) error {
	perms, err := strconv.ParseUint(opts.perms, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid --perms %q: %w", opts.perms, err)
	}

	if opts.output != "" && opts.confirm {
		if _, err := os.Stat(opts.output); err == nil {
			ok, err := confirmOverwrite(opts.output)
			if err != nil {
				return fmt.Errorf("confirm overwrite: %w", err)
			}
			if !ok {
				fmt.Fprintf(stdout, "Skipped %s\n", opts.output)
				return nil
			}
		}
	}

	data, err := buildContext(opts)
	if err != nil {
		return err
	}

	renderOpts := []render.Option{
		render.WithLogger(newLogger(stderr, opts.logLevel)),
		render.WithConfigProvider(configProvider(opts)),
	}
	if opts.charmDir != "" {
		renderOpts = append(renderOpts, render.WithCharmDir(hookenv.StaticCharmDir(opts.charmDir)))
	}

	src := render.SourceFromName(tmpl)
	if opts.inline {
		src = render.SourceFromString(tmpl)
	}

	out, err := render.New(renderOpts...).Render(ctx, render.Request{
		Source:       src,
		Target:       opts.output,
		Context:      data,
		Owner:        opts.owner,
		Group:        opts.group,
		Perms:        os.FileMode(perms),
		TemplatesDir: opts.templatesDir,
		Extension:    opts.extension,
	})
	if err != nil {
		return err
	}

	if opts.output != "" {
		fmt.Fprintf(stdout, "Rendered %s\n", opts.output)
		return nil
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func configProvider(opts *options) hookenv.ConfigProvider {
	if opts.configGet {
		return hookenv.CommandConfig{}
	}
	return hookenv.FileConfig{
		Defaults: opts.configDefaults,
		Values:   opts.configValues,
	}
}

func buildContext(opts *options) (map[string]any, error) {
	data := map[string]any{}
	if opts.contextFile != "" {
		raw, err := os.ReadFile(opts.contextFile)
		if err != nil {
			return nil, fmt.Errorf("read --context-file: %w", err)
		}
		values, err := hookenv.ParseValues(raw, opts.contextFile)
		if err != nil {
			return nil, err
		}
		for key, value := range values {
			data[key] = value
		}
	}
	for _, pair := range opts.set {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		data[key] = value
	}
	return data, nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
