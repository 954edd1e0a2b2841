package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "one\ntwo\nthree")
	tool := &ReadFileTool{ws: newWorkspace(dir)}
	ctx := context.Background()

	out, err := tool.Execute(ctx, mustMarshal(t, ReadFileArgs{Path: "a.txt"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1\tone\n2\ttwo\n3\tthree" {
		t.Errorf("unexpected output %q", out)
	}

	out, err = tool.Execute(ctx, mustMarshal(t, ReadFileArgs{Path: "a.txt", StartLine: 2, EndLine: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2\ttwo" {
		t.Errorf("range output = %q", out)
	}

	_, err = tool.Execute(ctx, mustMarshal(t, ReadFileArgs{Path: "missing.txt"}))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Type != ErrFileNotFound {
		t.Fatalf("expected file not found, got %v", err)
	}
	if FormatError(err) != "Error: File not found: missing.txt" {
		t.Errorf("unexpected message %q", FormatError(err))
	}
}

func TestReadFileTool_TruncatesLongFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "big.txt"), strings.Repeat("x\n", defaultReadLines+10))
	tool := &ReadFileTool{ws: newWorkspace(dir)}

	out, err := tool.Execute(context.Background(), mustMarshal(t, ReadFileArgs{Path: "big.txt"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(out, "...(file has 2011 lines, showing first 2000)") {
		t.Errorf("missing truncation footer: %q", out[len(out)-60:])
	}
}

func TestReadFileTool_Binary(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "bin"), "\x00\x01\x02\x03")
	tool := &ReadFileTool{ws: newWorkspace(dir)}
	_, err := tool.Execute(context.Background(), mustMarshal(t, ReadFileArgs{Path: "bin"}))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Type != ErrBinaryFile {
		t.Fatalf("expected binary error, got %v", err)
	}
}

func TestWriteFileTool_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	tool := &WriteFileTool{ws: newWorkspace(dir)}

	out, err := tool.Execute(context.Background(), mustMarshal(t, WriteFileArgs{Path: "a/b/c.txt", Content: "hi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "File created successfully: a/b/c.txt" {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.txt"))
	if err != nil || string(data) != "hi" {
		t.Fatalf("file content = %q, err %v", data, err)
	}

	out, err = tool.Execute(context.Background(), mustMarshal(t, WriteFileArgs{Path: "a/b/c.txt", Content: "again"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "File written successfully: a/b/c.txt" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestEditFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	writeTestFile(t, path, "package main\n\nfunc a() {}\nfunc b() {}\n")
	tool := &EditFileTool{ws: newWorkspace(dir)}
	ctx := context.Background()

	out, err := tool.Execute(ctx, mustMarshal(t, EditFileArgs{Path: "main.go", OldString: "func a() {}", NewString: "func a() { b() }"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "File edited successfully: main.go") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "-func a() {}") || !strings.Contains(out, "+func a() { b() }") {
		t.Errorf("expected unified diff in output, got %q", out)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "func a() { b() }") {
		t.Errorf("edit not applied: %q", data)
	}
}

func TestEditFileTool_Errors(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "f.txt"), "x x x")
	tool := &EditFileTool{ws: newWorkspace(dir)}
	ctx := context.Background()

	tests := []struct {
		name string
		args EditFileArgs
		want string
	}{
		{"missing file", EditFileArgs{Path: "nope.txt", OldString: "a", NewString: "b"}, "File not found: nope.txt"},
		{"not found", EditFileArgs{Path: "f.txt", OldString: "y", NewString: "z"}, "old_string not found in f.txt"},
		{"ambiguous", EditFileArgs{Path: "f.txt", OldString: "x", NewString: "z"}, "old_string found 3 times"},
		{"empty old", EditFileArgs{Path: "f.txt", NewString: "z"}, "old_string must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(ctx, mustMarshal(t, tt.args))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestEditFileTool_ReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	writeTestFile(t, path, "x x x")
	tool := &EditFileTool{ws: newWorkspace(dir)}

	out, err := tool.Execute(context.Background(), mustMarshal(t, EditFileArgs{Path: "f.txt", OldString: "x", NewString: "y", ReplaceAll: true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "(3 replacements)") {
		t.Errorf("unexpected output %q", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "y y y" {
		t.Errorf("content = %q", data)
	}
}

func TestGlobTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.go"), "")
	writeTestFile(t, filepath.Join(dir, "sub", "b.go"), "")
	writeTestFile(t, filepath.Join(dir, "sub", "c.txt"), "")
	writeTestFile(t, filepath.Join(dir, ".git", "d.go"), "")
	writeTestFile(t, filepath.Join(dir, "node_modules", "e.go"), "")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "a.go"), old, old); err != nil {
		t.Fatal(err)
	}

	tool := &GlobTool{ws: newWorkspace(dir)}
	out, err := tool.Execute(context.Background(), mustMarshal(t, GlobArgs{Pattern: "**/*.go"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "sub/b.go\na.go" {
		t.Errorf("unexpected output %q", out)
	}

	out, err = tool.Execute(context.Background(), mustMarshal(t, GlobArgs{Pattern: "*.rs"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "No files matched the pattern." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestGlobTool_UnknownParamWarning(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.go"), "")
	tool := &GlobTool{ws: newWorkspace(dir)}

	out, err := tool.Execute(context.Background(), []byte(`{"pattern":"*.go","cwd":"x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Unknown parameter 'cwd' was ignored\na.go" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestGrepTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.go"), "package a\nfunc Hello() {}\n")
	writeTestFile(t, filepath.Join(dir, "b.txt"), "Hello there\n")
	tool := &GrepTool{ws: newWorkspace(dir)}
	ctx := context.Background()

	out, err := tool.Execute(ctx, mustMarshal(t, GrepArgs{Pattern: "Hello", Include: "*.go"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a.go:2: func Hello() {}" {
		t.Errorf("unexpected output %q", out)
	}

	out, err = tool.Execute(ctx, mustMarshal(t, GrepArgs{Pattern: "Hello", Path: "a.go", ContextLines: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "--- a.go ---") || !strings.Contains(out, "> 2: func Hello() {}") || !strings.Contains(out, "  1: package a") {
		t.Errorf("unexpected context output %q", out)
	}

	out, err = tool.Execute(ctx, mustMarshal(t, GrepArgs{Pattern: "nomatch"}))
	if err != nil || out != "No matches found." {
		t.Errorf("out = %q, err = %v", out, err)
	}

	if _, err := tool.Execute(ctx, mustMarshal(t, GrepArgs{Pattern: "("})); err == nil {
		t.Error("expected invalid regex error")
	}
}

func TestListDirectoryTool(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "b.txt"), "hello")
	writeTestFile(t, filepath.Join(dir, "a", "inner.txt"), "")
	writeTestFile(t, filepath.Join(dir, ".hidden"), "")
	tool := &ListDirectoryTool{ws: newWorkspace(dir)}
	ctx := context.Background()

	out, err := tool.Execute(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a/\nb.txt (5B)" {
		t.Errorf("unexpected output %q", out)
	}

	out, err = tool.Execute(ctx, mustMarshal(t, ListDirectoryArgs{MaxDepth: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a/\n  inner.txt (0B)\nb.txt (5B)" {
		t.Errorf("unexpected nested output %q", out)
	}

	if _, err := tool.Execute(ctx, mustMarshal(t, ListDirectoryArgs{Path: "b.txt"})); err == nil {
		t.Error("expected error listing a file")
	}
}
