package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func Test_Recognized(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{"main.go", true},
		{"app.PY", true},
		{"notes.md", true},
		{"binary.exe", false},
		{"image.png", false},
		{"Makefile", false},
	}
	for _, tc := range cases {
		if got := Recognized(tc.path); got != tc.want {
			t.Errorf("Recognized(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func Test_LoadFile_Metadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "handler.go", "package web\n")

	doc, err := LoadFile(path, "webapp")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.Text != "package web\n" {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.Metadata["filename"] != "handler.go" {
		t.Errorf("filename = %v", doc.Metadata["filename"])
	}
	if doc.Metadata["file_extension"] != ".go" {
		t.Errorf("file_extension = %v", doc.Metadata["file_extension"])
	}
	if doc.Metadata["repo_name"] != "webapp" {
		t.Errorf("repo_name = %v", doc.Metadata["repo_name"])
	}
	if doc.Metadata["file_size"] != int64(len("package web\n")) {
		t.Errorf("file_size = %v", doc.Metadata["file_size"])
	}
	if doc.Metadata["processed_at"] == "" {
		t.Error("processed_at missing")
	}
}

func Test_LoadFile_RejectsOversized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "huge.txt", strings.Repeat("x", maxFileSize+1))

	if _, err := LoadFile(path, "r"); err == nil {
		t.Fatal("oversized file must be rejected")
	}
}

func Test_LoadDir_FiltersAndRecurses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "sub/util.py", "def util(): pass\n")
	writeFile(t, dir, "photo.png", "not text")
	writeFile(t, dir, ".git/config", "[core]\n")

	docs, err := LoadDir(dir, "proj", nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("want 2 documents, got %d", len(docs))
	}

	names := map[string]bool{}
	for _, d := range docs {
		names[d.Metadata["filename"].(string)] = true
	}
	if !names["main.go"] || !names["util.py"] {
		t.Errorf("unexpected document set: %v", names)
	}
}

func Test_LoadDir_SkipCallbackOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "big.md", strings.Repeat("x", maxFileSize+1))
	writeFile(t, dir, "ok.md", "fine")

	var skipped []string
	docs, err := LoadDir(dir, "proj", func(path string, _ error) {
		skipped = append(skipped, filepath.Base(path))
	})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].Metadata["filename"] != "ok.md" {
		t.Errorf("want only ok.md loaded, got %d docs", len(docs))
	}
	if len(skipped) != 1 || skipped[0] != "big.md" {
		t.Errorf("skip callback = %v, want [big.md]", skipped)
	}
}
