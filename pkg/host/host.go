// Package host writes files the way charm hooks need them: parent
// directories created on demand and every created path owned by the
// requested user and group with the requested mode.
package host

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

var (
	// ErrUnknownUser is returned when an owner name has no passwd entry.
	ErrUnknownUser = errors.New("host: unknown user")
	// ErrUnknownGroup is returned when a group name has no group entry.
	ErrUnknownGroup = errors.New("host: unknown group")
)

// Ownership identifies the requested owner and group by name. Numeric
// strings are taken as ids.
type Ownership struct {
	Owner string
	Group string
}

// Resolve looks up the numeric ids for o.
func (o Ownership) Resolve() (uid, gid int, err error) {
	uid, err = resolveID(o.Owner, lookupUser, ErrUnknownUser)
	if err != nil {
		return -1, -1, err
	}
	gid, err = resolveID(o.Group, lookupGroup, ErrUnknownGroup)
	if err != nil {
		return -1, -1, err
	}
	return uid, gid, nil
}

func resolveID(name string, lookup func(string) (int, error), unknown error) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, nil
	}
	if id, err := strconv.Atoi(name); err == nil && id >= 0 {
		return id, nil
	}
	id, err := lookup(name)
	if err != nil {
		return -1, fmt.Errorf("%w %q: %v", unknown, name, err)
	}
	return id, nil
}

// DirMode derives the mode for directories created on behalf of a file with
// mode perm: the owner always gets rwx, group and other get r-x when the
// file grants them read.
func DirMode(perm fs.FileMode) fs.FileMode {
	mode := fs.FileMode(0o700)
	if perm&0o040 != 0 {
		mode |= 0o050
	}
	if perm&0o004 != 0 {
		mode |= 0o005
	}
	return mode
}

// Mkdir creates path and any missing parents. Each directory it creates is
// chowned to owner and group and set to perm; existing directories are left
// untouched.
func Mkdir(path string, own Ownership, perm fs.FileMode) error {
	uid, gid, err := own.Resolve()
	if err != nil {
		return err
	}
	return mkdirAll(path, uid, gid, perm)
}

func mkdirAll(path string, uid, gid int, perm fs.FileMode) error {
	path = filepath.Clean(path)

	var missing []string
	for dir := path; ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("host: %s exists and is not a directory", dir)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("host: stat %s: %w", dir, err)
		}
		missing = append(missing, dir)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	for i := len(missing) - 1; i >= 0; i-- {
		dir := missing[i]
		if err := os.Mkdir(dir, perm); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("host: mkdir %s: %w", dir, err)
		}
		if err := applyMetadata(dir, uid, gid, perm); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes content to path atomically, creating missing parent
// directories with DirMode(perm), then applies owner, group and perm to the
// file.
func WriteFile(path string, content []byte, own Ownership, perm fs.FileMode) error {
	uid, gid, err := own.Resolve()
	if err != nil {
		return err
	}

	if err := mkdirAll(filepath.Dir(path), uid, gid, DirMode(perm)); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("host: write %s: %w", path, err)
	}
	return applyMetadata(path, uid, gid, perm)
}

func applyMetadata(path string, uid, gid int, perm fs.FileMode) error {
	if uid >= 0 || gid >= 0 {
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("host: chown %s: %w", path, err)
		}
	}
	// Chmod after Chown: chown may clear setuid/setgid bits.
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("host: chmod %s: %w", path, err)
	}
	return nil
}
