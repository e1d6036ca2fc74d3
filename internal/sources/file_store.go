package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mohammad-safakhou/briefer/config"
)

// FileStore keeps the document as pretty-printed JSON on disk. Writers take an
// exclusive lock on a sibling ".lock" file and replace the document by rename.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = config.DefaultSourcesFile
	}
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	return s.read()
}

func (s *FileStore) Update(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock, err := lockFile(ctx, s.Path+".lock")
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.Path, err)
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	changed, err := fn(&doc)
	if err != nil || !changed {
		return err
	}
	return s.write(ctx, doc)
}

func (s *FileStore) read() (Document, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{Sources: []Source{}}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", s.Path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{Sources: []Source{}}, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	if doc.Sources == nil {
		doc.Sources = []Source{}
	}
	return doc, nil
}

func (s *FileStore) write(ctx context.Context, doc Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", s.Path, err)
	}
	// A caller that gave up must not see its change land later.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}
	return nil
}

// encodeDocument renders the document with two-space indentation.
func encodeDocument(doc Document) ([]byte, error) {
	doc = doc.Clone()
	return json.MarshalIndent(doc, "", "  ")
}
