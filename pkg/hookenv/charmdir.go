package hookenv

import (
	"os"
	"path/filepath"
)

// CharmDirProvider returns the charm installation directory.
type CharmDirProvider interface {
	CharmDir() string
}

// CharmDirFunc adapts a function to CharmDirProvider.
type CharmDirFunc func() string

func (f CharmDirFunc) CharmDir() string { return f() }

// StaticCharmDir always reports the same directory.
type StaticCharmDir string

func (d StaticCharmDir) CharmDir() string { return string(d) }

// EnvCharmDir resolves the charm directory from CHARM_DIR, then
// JUJU_CHARM_DIR, then the directory of the running executable.
var EnvCharmDir = CharmDirFunc(charmDirFromEnv)

func charmDirFromEnv() string {
	for _, key := range []string{"CHARM_DIR", "JUJU_CHARM_DIR"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// TemplatesDir is the default template search root below the charm dir.
func TemplatesDir(p CharmDirProvider) string {
	if p == nil {
		p = EnvCharmDir
	}
	return filepath.Join(p.CharmDir(), "templates")
}
