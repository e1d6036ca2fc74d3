// Package sources owns the registry of configured news sources.
package sources

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateSource = errors.New("source already exists")
	ErrNotFound        = errors.New("source not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMissingField    = errors.New("missing required field")
)

// Source is one configured feed. URL is the unique key.
type Source struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Document is the durable shape of the registry.
type Document struct {
	Sources []Source `json:"sources"`
}

// Clone returns a deep copy; a nil slice becomes empty so it encodes as [].
func (d Document) Clone() Document {
	out := make([]Source, len(d.Sources))
	copy(out, d.Sources)
	return Document{Sources: out}
}

// Active returns the active sources in stored order.
func (d Document) Active() []Source {
	var out []Source
	for _, s := range d.Sources {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// IndexOf returns the position of the first entry m selects, or -1.
func (d Document) IndexOf(m Match) int {
	for i, s := range d.Sources {
		if m.matches(s) {
			return i
		}
	}
	return -1
}

// Match selects an entry by URL when URL is set, otherwise by name.
type Match struct {
	URL  string
	Name string
}

func (m Match) Empty() bool {
	return strings.TrimSpace(m.URL) == "" && strings.TrimSpace(m.Name) == ""
}

func (m Match) matches(s Source) bool {
	if m.URL != "" {
		return s.URL == m.URL
	}
	return s.Name == m.Name
}

func (m Match) String() string {
	if m.URL != "" {
		return m.URL
	}
	return m.Name
}
