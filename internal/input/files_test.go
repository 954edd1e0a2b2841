package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test1.txt"), "content1")
	writeFile(t, filepath.Join(dir, "test2.txt"), "content2")
	writeFile(t, filepath.Join(dir, "pkg", "deep", "x.go"), "package deep\n")
	writeFile(t, filepath.Join(dir, "lines.txt"), "a\nb\nc\nd")

	t.Run("single file", func(t *testing.T) {
		files, err := ReadFiles(dir, []string{"test1.txt"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 1 || files[0].Content != "content1" {
			t.Fatalf("files = %+v", files)
		}
	})

	t.Run("glob pattern", func(t *testing.T) {
		files, err := ReadFiles(dir, []string{"*.txt"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("expected 3 files from glob, got %d", len(files))
		}
	})

	t.Run("recursive glob", func(t *testing.T) {
		files, err := ReadFiles(dir, []string{"**/*.go"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 1 || !strings.HasSuffix(files[0].Path, filepath.Join("deep", "x.go")) {
			t.Fatalf("files = %+v", files)
		}
	})

	t.Run("line range", func(t *testing.T) {
		files, err := ReadFiles(dir, []string{"lines.txt:2-3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if files[0].Content != "b\nc" {
			t.Errorf("content = %q", files[0].Content)
		}
		if !strings.HasSuffix(files[0].Path, "lines.txt:2-3") {
			t.Errorf("path = %q", files[0].Path)
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		if _, err := ReadFiles(dir, []string{"missing.txt"}); err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("empty path list", func(t *testing.T) {
		files, err := ReadFiles(dir, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected 0 files, got %d", len(files))
		}
	})
}

func TestReadFiles_CapsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.txt"), strings.Repeat("x", MaxFileSize+100))

	files, err := ReadFiles(dir, []string{"big.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(files[0].Content, truncatedNote) {
		t.Error("missing truncation note")
	}
	if len(files[0].Content) != MaxFileSize+len(truncatedNote) {
		t.Errorf("content length = %d", len(files[0].Content))
	}
}

func TestResolveReferences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")

	clean, files := ResolveReferences(dir, "explain @main.go please")
	if clean != "explain please" {
		t.Errorf("clean = %q", clean)
	}
	if len(files) != 1 || files[0].Content != "package main" {
		t.Fatalf("files = %+v", files)
	}
	if files[0].Path != filepath.Join(dir, "main.go") {
		t.Errorf("path = %q", files[0].Path)
	}
}

func TestResolveReferences_UnreadableLeftAlone(t *testing.T) {
	dir := t.TempDir()

	text := "ping @someone about it"
	clean, files := ResolveReferences(dir, text)
	if clean != text || files != nil {
		t.Errorf("got %q, %+v", clean, files)
	}
}

func TestFormatContext(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		result := FormatContext([]FileContent{{Path: "test.txt", Content: "hello world\n"}}, "")
		expected := "<file path=\"test.txt\">\nhello world\n</file>"
		if result != expected {
			t.Errorf("expected:\n%s\ngot:\n%s", expected, result)
		}
	})

	t.Run("files and stdin", func(t *testing.T) {
		result := FormatContext([]FileContent{{Path: "a.txt", Content: "aaa"}, {Path: "b.txt", Content: "bbb"}}, "piped")
		want := "<file path=\"a.txt\">\naaa\n</file>\n\n<file path=\"b.txt\">\nbbb\n</file>\n\n<stdin>\npiped\n</stdin>"
		if result != want {
			t.Errorf("expected:\n%s\ngot:\n%s", want, result)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if result := FormatContext(nil, ""); result != "" {
			t.Errorf("expected empty result, got: %s", result)
		}
	})
}

func TestHasStdin(t *testing.T) {
	// Only checks that the probe does not panic under the test runner.
	_ = HasStdin()
}
