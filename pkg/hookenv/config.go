// Package hookenv exposes the charm environment the render helper reads
// from: the configuration mapping and the charm installation directory.
package hookenv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigProvider returns the current configuration mapping. Implementations
// must hand out a mapping the caller may not mutate back into the store.
type ConfigProvider interface {
	Config(ctx context.Context) (map[string]any, error)
}

// ConfigFunc adapts a function to ConfigProvider.
type ConfigFunc func(ctx context.Context) (map[string]any, error)

func (f ConfigFunc) Config(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

// StaticConfig serves a fixed mapping.
type StaticConfig map[string]any

func (c StaticConfig) Config(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(c))
	for key, value := range c {
		out[key] = value
	}
	return out, nil
}

// FileConfig reads configuration from disk. Defaults points at a charm
// config.yaml (`options.<key>.default`); Values points at a flat JSON or
// YAML mapping whose keys override the defaults. Either may be empty and a
// missing file is treated as empty.
type FileConfig struct {
	Defaults string
	Values   string
}

func (c FileConfig) Config(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]any)
	if c.Defaults != "" {
		defaults, err := LoadDefaults(c.Defaults)
		if err != nil {
			return nil, err
		}
		for key, value := range defaults {
			out[key] = value
		}
	}
	if c.Values != "" {
		values, err := LoadValues(c.Values)
		if err != nil {
			return nil, err
		}
		for key, value := range values {
			out[key] = value
		}
	}
	return out, nil
}

type optionsFile struct {
	Options map[string]struct {
		Type        string `yaml:"type"`
		Default     any    `yaml:"default"`
		Description string `yaml:"description"`
	} `yaml:"options"`
}

// LoadDefaults parses a charm config.yaml and returns each option's default.
// Options without a default are omitted.
func LoadDefaults(path string) (map[string]any, error) {
	data, err := readOptional(path)
	if err != nil || data == nil {
		return map[string]any{}, err
	}

	var doc optionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hookenv: parse %s: %w", path, err)
	}

	out := make(map[string]any, len(doc.Options))
	for name, opt := range doc.Options {
		if opt.Default == nil {
			continue
		}
		out[name] = opt.Default
	}
	return out, nil
}

// LoadValues parses a flat JSON or YAML mapping.
func LoadValues(path string) (map[string]any, error) {
	data, err := readOptional(path)
	if err != nil || data == nil {
		return map[string]any{}, err
	}
	return ParseValues(data, path)
}

// ParseValues decodes a JSON or YAML mapping; source labels errors.
func ParseValues(data []byte, source string) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	}

	out = map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("hookenv: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return out, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("hookenv: read %s: %w", path, err)
	}
	return data, nil
}

// DefaultConfigCommand is the hook tool queried by CommandConfig.
var DefaultConfigCommand = []string{"config-get", "--all", "--format=json"}

// CommandConfig runs a hook tool that prints the configuration as JSON.
// An empty Command runs DefaultConfigCommand.
type CommandConfig struct {
	Command []string
	Env     []string
}

func (c CommandConfig) Config(ctx context.Context) (map[string]any, error) {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultConfigCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("hookenv: %s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("hookenv: %s: %w", argv[0], err)
	}

	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	values := map[string]any{}
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, fmt.Errorf("hookenv: decode %s output: %w", argv[0], err)
	}
	return values, nil
}
