package inventory

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func writeFile(t *testing.T, root, relPath string, size int) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.bin", 100)
	writeFile(t, root, "sub/b.bin", 200)
	writeFile(t, root, "sub/deep/nested/c.bin", 50)

	files, total, err := Local(root, nil)
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}

	want := Set{
		"a.bin":                 100,
		"sub/b.bin":             200,
		"sub/deep/nested/c.bin": 50,
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Local() = %v, want %v", files, want)
	}
	if total != 350 {
		t.Errorf("Local() total = %d, want 350", total)
	}
}

func TestLocalEmptyDir(t *testing.T) {
	files, total, err := Local(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}
	if len(files) != 0 || total != 0 {
		t.Errorf("Local() = %v (%d bytes), want empty", files, total)
	}
}

func TestLocalExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.bin", 10)
	writeFile(t, root, "logs/run.log", 99)

	files, total, err := Local(root, []string{"logs/**"})
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}

	want := Set{"keep.bin": 10}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Local() = %v, want %v", files, want)
	}
	if total != 10 {
		t.Errorf("Local() total = %d, want 10", total)
	}
}

func TestLocalSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}

	root := t.TempDir()
	writeFile(t, root, "real.bin", 42)
	if err := os.Symlink(filepath.Join(root, "real.bin"), filepath.Join(root, "link.bin")); err != nil {
		t.Fatal(err)
	}

	files, _, err := Local(root, nil)
	if err != nil {
		t.Fatalf("Local() error = %v", err)
	}
	if _, ok := files["link.bin"]; ok {
		t.Error("Local() recorded a symlink; only regular files should be listed")
	}
	if _, ok := files["real.bin"]; !ok {
		t.Error("Local() missed a regular file")
	}
}

func TestLocalMissingRoot(t *testing.T) {
	_, _, err := Local(filepath.Join(t.TempDir(), "nope"), nil)
	if err == nil {
		t.Fatal("Local() expected error for missing root, got nil")
	}
}
