package templating_test

import (
	"context"
	"errors"
	"testing"

	templating "github.com/goliatone/go-charm-templating"
	"github.com/goliatone/go-charm-templating/pkg/hookenv"
	"github.com/goliatone/go-charm-templating/pkg/render"
)

func TestRenderFile(t *testing.T) {
	out, err := templating.RenderFile(context.Background(), "app.conf.j2",
		map[string]any{"unit": "app/0"},
		render.WithConfigProvider(hookenv.StaticConfig{"port": 8080}),
		render.WithCharmDir(hookenv.StaticCharmDir("testdata")),
	)
	if err != nil {
		t.Fatalf("render file: %v", err)
	}
	if out != "unit=app/0 port=8080" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderString(t *testing.T) {
	out, err := templating.RenderString(context.Background(), `{{ config.port }}`, nil,
		render.WithConfigProvider(hookenv.StaticConfig{"port": 8080}),
	)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if out != "8080" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderFile_NotFound(t *testing.T) {
	_, err := templating.RenderFile(context.Background(), "missing.j2", nil,
		render.WithConfigProvider(hookenv.StaticConfig{}),
		render.WithCharmDir(hookenv.StaticCharmDir("testdata")),
	)
	if !errors.Is(err, templating.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}
