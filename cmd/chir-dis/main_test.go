package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jade-lang/jadec/internal/chir"
)

func writeFixtureChir(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	raw := chir.RawModule{
		Phase: "CHIR",
		Types: []chir.RawEntry{{Kind: chir.TypePrimitive, Payload: []byte("Int64")}},
		Values: []chir.RawEntry{{Kind: chir.ValueFunc, Payload: []byte("main")}},
	}
	if err := chir.Serialize(f, raw); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return path
}

func TestRunWritesChirtxtNextToCwd(t *testing.T) {
	dir := t.TempDir()
	input := writeFixtureChir(t, dir, "prog.chir")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)

	if code := run([]string{input}); code != exitOK {
		t.Fatalf("run() = %d, want %d", code, exitOK)
	}

	out, err := os.ReadFile(filepath.Join(dir, "prog.chirtxt"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Contains(out, []byte("primitive")) {
		t.Errorf("output missing disassembled type entry:\n%s", out)
	}
}

func TestRunRejectsMissingFile(t *testing.T) {
	if code := run([]string{"does-not-exist.chir"}); code != exitUserError {
		t.Errorf("run() = %d, want %d", code, exitUserError)
	}
}

func TestRunHelpAndVersion(t *testing.T) {
	if code := run([]string{"-h"}); code != exitOK {
		t.Errorf("-h: run() = %d, want %d", code, exitOK)
	}
	if code := run([]string{"-v"}); code != exitOK {
		t.Errorf("-v: run() = %d, want %d", code, exitOK)
	}
}

func TestRunRejectsNoArgs(t *testing.T) {
	if code := run(nil); code != exitUserError {
		t.Errorf("run() = %d, want %d", code, exitUserError)
	}
}

func TestOutputPathUsesBasenameInCwd(t *testing.T) {
	got := outputPath(filepath.Join("some", "nested", "dir", "prog.chir"))
	if got != "prog.chirtxt" {
		t.Errorf("outputPath = %q, want %q", got, "prog.chirtxt")
	}
}
