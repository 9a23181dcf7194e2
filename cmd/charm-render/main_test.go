package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeCharm(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "templates", "app.conf.j2"),
		[]byte(`name={{ name }} port={{ config.port }}`),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.yaml"),
		[]byte("options:\n  port:\n    type: int\n    default: 8080\n"),
		0o644,
	))
	return dir
}

func TestRender_Stdout(t *testing.T) {
	charm := writeCharm(t)

	stdout, _, err := execute(t,
		"--charm-dir", charm,
		"--config-defaults", filepath.Join(charm, "config.yaml"),
		"--set", "name=web",
		"app.conf.j2",
	)
	require.NoError(t, err)
	assert.Equal(t, "name=web port=8080\n", stdout)
}

func TestRender_Inline(t *testing.T) {
	valuesPath := filepath.Join(t.TempDir(), "values.json")
	require.NoError(t, os.WriteFile(valuesPath, []byte(`{"cfg-name": "cfg-value"}`), 0o644))

	stdout, _, err := execute(t,
		"--config-values", valuesPath,
		"--inline",
		`{{ config["cfg-name"] }}`,
	)
	require.NoError(t, err)
	assert.Equal(t, "cfg-value\n", stdout)
}

func TestRender_ContextFile(t *testing.T) {
	charm := writeCharm(t)
	ctxPath := filepath.Join(t.TempDir(), "ctx.yaml")
	require.NoError(t, os.WriteFile(ctxPath, []byte("name: from-file\n"), 0o644))

	stdout, _, err := execute(t,
		"--charm-dir", charm,
		"--context-file", ctxPath,
		"app.conf.j2",
	)
	require.NoError(t, err)
	assert.Equal(t, "name=from-file port=\n", stdout)
}

func TestRender_ToFile(t *testing.T) {
	charm := writeCharm(t)
	target := filepath.Join(t.TempDir(), "etc", "app.conf")

	stdout, _, err := execute(t,
		"--charm-dir", charm,
		"--config-defaults", filepath.Join(charm, "config.yaml"),
		"--set", "name=web",
		"--owner", strconv.Itoa(os.Geteuid()),
		"--group", strconv.Itoa(os.Getegid()),
		"--perms", "0640",
		"-o", target,
		"app.conf.j2",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "name=web port=8080", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestRender_MissingTemplate(t *testing.T) {
	charm := writeCharm(t)

	_, stderr, err := execute(t, "--charm-dir", charm, "missing.j2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.j2")
	assert.Contains(t, stderr, "could not load template")
}

func TestRender_InvalidFlags(t *testing.T) {
	_, _, err := execute(t, "--perms", "9z", "--inline", "x")
	require.Error(t, err)

	_, _, err = execute(t, "--set", "novalue", "--inline", "x")
	require.Error(t, err)
}

func TestRender_ConfirmDeclined(t *testing.T) {
	charm := writeCharm(t)
	target := filepath.Join(t.TempDir(), "app.conf")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))

	prev := confirmOverwrite
	t.Cleanup(func() { confirmOverwrite = prev })
	var asked string
	confirmOverwrite = func(path string) (bool, error) {
		asked = path
		return false, nil
	}

	stdout, _, err := execute(t,
		"--charm-dir", charm,
		"--confirm",
		"-o", target,
		"app.conf.j2",
	)
	require.NoError(t, err)
	assert.Equal(t, target, asked)
	assert.Contains(t, stdout, "Skipped")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
