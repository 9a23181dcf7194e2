//go:build linux || darwin

package host_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/moby/sys/user"

	"github.com/goliatone/go-charm-templating/pkg/host"
)

func TestDirMode(t *testing.T) {
	cases := map[fs.FileMode]fs.FileMode{
		0o400: 0o700,
		0o600: 0o700,
		0o640: 0o750,
		0o644: 0o755,
		0o444: 0o755,
		0o604: 0o705,
	}
	for perm, want := range cases {
		if got := host.DirMode(perm); got != want {
			t.Errorf("DirMode(%#o) = %#o, want %#o", perm, got, want)
		}
	}
}

func TestWriteFile_CreatesParentsWithOwnership(t *testing.T) {
	own, uid, gid := currentOwnership(t)
	outDir := filepath.Join(t.TempDir(), "test")
	outFile := filepath.Join(outDir, "output.txt")

	if err := host.WriteFile(outFile, []byte("test"), own, 0o400); err != nil {
		t.Fatalf("write file: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "test" {
		t.Fatalf("unexpected content %q", data)
	}

	assertMetadata(t, outDir, 0o700, uid, gid)
	assertMetadata(t, outFile, 0o400, uid, gid)
}

func TestWriteFile_Overwrites(t *testing.T) {
	own, uid, gid := currentOwnership(t)
	outFile := filepath.Join(t.TempDir(), "output.txt")

	if err := host.WriteFile(outFile, []byte("first"), own, 0o444); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := host.WriteFile(outFile, []byte("second"), own, 0o640); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("unexpected content %q", data)
	}
	assertMetadata(t, outFile, 0o640, uid, gid)
}

func TestMkdir_OnlyTouchesCreatedDirs(t *testing.T) {
	own, uid, gid := currentOwnership(t)
	root := t.TempDir()
	if err := os.Chmod(root, 0o755); err != nil {
		t.Fatalf("chmod root: %v", err)
	}

	nested := filepath.Join(root, "a", "b", "c")
	if err := host.Mkdir(nested, own, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	for _, dir := range []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		nested,
	} {
		assertMetadata(t, dir, 0o750, uid, gid)
	}

	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("stat root: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("existing root changed to %#o", info.Mode().Perm())
	}
}

func TestMkdir_FileInTheWay(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if err := host.Mkdir(filepath.Join(blocker, "child"), host.Ownership{}, 0o700); err == nil {
		t.Fatalf("expected error when a parent is a regular file")
	}
}

func TestOwnership_UnknownNames(t *testing.T) {
	_, _, err := host.Ownership{Owner: "no-such-user-charm-templating"}.Resolve()
	if !errors.Is(err, host.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}

	_, _, err = host.Ownership{Group: "no-such-group-charm-templating"}.Resolve()
	if !errors.Is(err, host.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestOwnership_NumericIDs(t *testing.T) {
	uid, gid, err := host.Ownership{Owner: "1234", Group: "5678"}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if uid != 1234 || gid != 5678 {
		t.Fatalf("unexpected ids uid=%d gid=%d", uid, gid)
	}
}

func currentOwnership(t *testing.T) (host.Ownership, int, int) {
	t.Helper()

	uid, gid := os.Geteuid(), os.Getegid()
	own := host.Ownership{Owner: strconv.Itoa(uid), Group: strconv.Itoa(gid)}
	if u, err := user.LookupUid(uid); err == nil {
		own.Owner = u.Name
	}
	if g, err := user.LookupGid(gid); err == nil {
		own.Group = g.Name
	}
	return own, uid, gid
}

func assertMetadata(t *testing.T, path string, perm fs.FileMode, uid, gid int) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if got := info.Mode().Perm(); got != perm {
		t.Errorf("%s: mode %#o, want %#o", path, got, perm)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		t.Fatalf("%s: no stat_t", path)
	}
	if int(stat.Uid) != uid || int(stat.Gid) != gid {
		t.Errorf("%s: owner %d:%d, want %d:%d", path, stat.Uid, stat.Gid, uid, gid)
	}
}
