package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry is the single owner of the source list. Every caller (console API,
// CLI, terminal menu, agent tool) goes through it; mu serializes transactions
// in-process and the Store provides the cross-process boundary.
type Registry struct {
	mu     sync.Mutex
	store  Store
	logger *zap.Logger
}

func NewRegistry(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger}
}

// Document returns the full stored document.
func (r *Registry) Document(ctx context.Context) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Load(ctx)
}

// List returns every entry in stored order.
func (r *Registry) List(ctx context.Context) ([]Source, error) {
	doc, err := r.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Sources, nil
}

func (r *Registry) Add(ctx context.Context, name, url string, active bool) (Source, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" || url == "" {
		return Source{}, fmt.Errorf("%w: add requires name and url", ErrMissingField)
	}
	src := Source{Name: name, URL: url, Active: active}
	err := r.update(ctx, func(doc *Document) (bool, error) {
		for _, s := range doc.Sources {
			if s.URL == url {
				return false, fmt.Errorf("%w: %s", ErrDuplicateSource, url)
			}
		}
		doc.Sources = append(doc.Sources, src)
		return true, nil
	})
	if err != nil {
		return Source{}, err
	}
	r.logger.Info("source added", zap.String("name", name), zap.String("url", url))
	return src, nil
}

func (r *Registry) Remove(ctx context.Context, m Match) (Source, error) {
	var removed Source
	err := r.mutate(ctx, m, func(doc *Document, idx int) {
		removed = doc.Sources[idx]
		doc.Sources = append(doc.Sources[:idx], doc.Sources[idx+1:]...)
	})
	if err != nil {
		return Source{}, err
	}
	r.logger.Info("source removed", zap.String("name", removed.Name), zap.String("url", removed.URL))
	return removed, nil
}

func (r *Registry) Toggle(ctx context.Context, m Match) (Source, error) {
	var out Source
	err := r.mutate(ctx, m, func(doc *Document, idx int) {
		doc.Sources[idx].Active = !doc.Sources[idx].Active
		out = doc.Sources[idx]
	})
	if err != nil {
		return Source{}, err
	}
	r.logger.Info("source toggled", zap.String("url", out.URL), zap.Bool("active", out.Active))
	return out, nil
}

func (r *Registry) SetActive(ctx context.Context, m Match, active bool) (Source, error) {
	var out Source
	err := r.mutate(ctx, m, func(doc *Document, idx int) {
		doc.Sources[idx].Active = active
		out = doc.Sources[idx]
	})
	if err != nil {
		return Source{}, err
	}
	r.logger.Info("source updated", zap.String("url", out.URL), zap.Bool("active", out.Active))
	return out, nil
}

// mutate applies fn to the entry m selects. A miss leaves storage untouched.
func (r *Registry) mutate(ctx context.Context, m Match, fn func(doc *Document, idx int)) error {
	if m.Empty() {
		return fmt.Errorf("%w: url or name required", ErrMissingField)
	}
	return r.update(ctx, func(doc *Document) (bool, error) {
		idx := doc.IndexOf(m)
		if idx < 0 {
			return false, fmt.Errorf("%w: %s", ErrNotFound, m)
		}
		fn(doc, idx)
		return true, nil
	})
}

func (r *Registry) update(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Update(ctx, fn)
}
