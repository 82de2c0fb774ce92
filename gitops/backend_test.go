package gitops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteWorktreeFile_CreatesParentDirs(t *testing.T) {
	root := t.TempDir()
	b := NewExecBackend(root)

	if err := b.WriteWorktreeFile("guardian/patches/x.md", []byte("content\n")); err != nil {
		t.Fatalf("WriteWorktreeFile() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "guardian", "patches", "x.md"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "content\n" {
		t.Errorf("got %q, want %q", data, "content\n")
	}
}

func TestReadWorktreeFile_MissingReturnsNil(t *testing.T) {
	b := NewExecBackend(t.TempDir())

	data, err := b.ReadWorktreeFile("does/not/exist.md")
	if err != nil {
		t.Fatalf("ReadWorktreeFile() error = %v", err)
	}
	if data != nil {
		t.Errorf("expected nil content for missing file, got %q", data)
	}
}

func TestReadWorktreeFile_RoundTrip(t *testing.T) {
	b := NewExecBackend(t.TempDir())

	if err := b.WriteWorktreeFile("a/b.txt", []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := b.ReadWorktreeFile("a/b.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
}

func TestRepoRoot(t *testing.T) {
	b := NewExecBackend("/some/root")
	if b.RepoRoot() != "/some/root" {
		t.Errorf("RepoRoot() = %q", b.RepoRoot())
	}
}
