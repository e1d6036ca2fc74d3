package vault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestSave_CreatesVaultAndAppendsExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "vault")
	w := New(dir)

	rep, err := w.Save(context.Background(), "Daily-Briefing-2025-01-02", "# Hello")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rep.Name != "Daily-Briefing-2025-01-02.md" {
		t.Fatalf("unexpected name %q", rep.Name)
	}
	if !filepath.IsAbs(rep.Path) {
		t.Fatalf("expected absolute path, got %q", rep.Path)
	}
	got, err := os.ReadFile(filepath.Join(dir, rep.Name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "# Hello" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestSave_KeepsExistingExtensionAndOverwrites(t *testing.T) {
	w := New(t.TempDir())
	ctx := context.Background()
	if _, err := w.Save(ctx, "r.md", "first"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rep, err := w.Save(ctx, "r.md", "second")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rep.Name != "r.md" {
		t.Fatalf("expected r.md, got %q", rep.Name)
	}
	got, err := w.Read(ctx, "r")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected latest write to win, got %q", got)
	}
}

func TestSave_RejectsEscapingNames(t *testing.T) {
	w := New(t.TempDir())
	for _, name := range []string{"../outside", "/etc/passwd", "", "   "} {
		if _, err := w.Save(context.Background(), name, "x"); !errors.Is(err, ErrInvalidFilename) {
			t.Fatalf("%q: expected ErrInvalidFilename, got %v", name, err)
		}
	}
}

func TestSave_WriteFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// The vault path is a regular file, so mkdir fails.
	w := New(filepath.Join(blocker, "vault"))
	if _, err := w.Save(context.Background(), "x", "y"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestList_NewestFirstAndMarkdownOnly(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	ctx := context.Background()
	for _, n := range []string{"Daily-Briefing-2025-01-01", "Daily-Briefing-2025-01-03", "Daily-Briefing-2025-01-02"} {
		if _, err := w.Save(ctx, n, n); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := w.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(list))
	}
	if list[0].Name != "Daily-Briefing-2025-01-03.md" || list[2].Name != "Daily-Briefing-2025-01-01.md" {
		t.Fatalf("unexpected order %+v", list)
	}
}

func TestList_MissingVaultIsEmpty(t *testing.T) {
	list, err := New(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestRead_Missing(t *testing.T) {
	_, err := New(t.TempDir()).Read(context.Background(), "absent")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestSave_CanceledContextWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Save(ctx, "late", "# Late"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "late.md")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected no report, stat err = %v", err)
	}
}
