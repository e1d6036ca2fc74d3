// Package vault writes and reads report artifacts in the content vault.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Ext is appended to filenames that lack it.
const Ext = ".md"

var ErrInvalidFilename = errors.New("invalid report filename")

// Report describes one markdown file in the vault.
type Report struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type Writer struct {
	Dir string
}

func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Normalize appends Ext when missing and rejects names that escape the vault.
func Normalize(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}

// Save writes content under filename, replacing any previous report of the
// same name, and returns the absolute path written.
func (w *Writer) Save(ctx context.Context, filename, content string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	name, err := Normalize(filename)
	if err != nil {
		return Report{}, err
	}
	full := filepath.Join(w.Dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return Report{}, err
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		abs = full
	}
	return Report{Name: name, Path: abs, Size: int64(len(content)), ModTime: time.Now()}, nil
}

// List returns the reports in the vault root, newest name first. A missing
// vault is empty.
func (w *Writer) List(ctx context.Context) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(w.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Report{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Report{
			Name:    e.Name(),
			Path:    filepath.Join(w.Dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	// Names are date-stamped, so reverse lexical order is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Read returns the markdown of one report.
func (w *Writer) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := Normalize(name)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(filepath.Join(w.Dir, name))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
