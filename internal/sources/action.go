package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Action kinds accepted by DecodeAction.
const (
	KindAdd       = "add"
	KindRemove    = "remove"
	KindToggle    = "toggle"
	KindSetActive = "set_active"
)

// ArgumentError is a payload rejected while decoding. Text is the message
// shown to the caller; Err is one of the package sentinels.
type ArgumentError struct {
	Err  error
	Text string
}

func (e *ArgumentError) Error() string { return e.Text }
func (e *ArgumentError) Unwrap() error { return e.Err }

// Action is a decoded registry mutation. The concrete types carry exactly the
// fields their kind needs.
type Action interface {
	Kind() string
	apply(ctx context.Context, r *Registry) (Source, error)
}

type AddAction struct {
	Name   string
	URL    string
	Active bool
}

type RemoveAction struct{ Match Match }

type ToggleAction struct{ Match Match }

type SetActiveAction struct {
	Match  Match
	Active bool
}

func (AddAction) Kind() string       { return KindAdd }
func (RemoveAction) Kind() string    { return KindRemove }
func (ToggleAction) Kind() string    { return KindToggle }
func (SetActiveAction) Kind() string { return KindSetActive }

func (a AddAction) apply(ctx context.Context, r *Registry) (Source, error) {
	return r.Add(ctx, a.Name, a.URL, a.Active)
}

func (a RemoveAction) apply(ctx context.Context, r *Registry) (Source, error) {
	return r.Remove(ctx, a.Match)
}

func (a ToggleAction) apply(ctx context.Context, r *Registry) (Source, error) {
	return r.Toggle(ctx, a.Match)
}

func (a SetActiveAction) apply(ctx context.Context, r *Registry) (Source, error) {
	return r.SetActive(ctx, a.Match, a.Active)
}

// Apply runs a decoded action against the registry.
func (r *Registry) Apply(ctx context.Context, a Action) (Source, error) {
	return a.apply(ctx, r)
}

type rawAction struct {
	Action string          `json:"action"`
	Name   *string         `json:"name"`
	URL    *string         `json:"url"`
	Active json.RawMessage `json:"active"`
}

// DecodeAction decodes {"action", "name", "url", "active"}.
func DecodeAction(raw []byte) (Action, error) {
	return DecodeActionAs("", raw)
}

// DecodeActionAs decodes raw as the given kind; an empty kind reads the
// "action" field.
func DecodeActionAs(kind string, raw []byte) (Action, error) {
	var in rawAction
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, &ArgumentError{Err: ErrInvalidArgument, Text: fmt.Sprintf("Error: invalid arguments: %v", err)}
		}
	}
	if kind == "" {
		kind = strings.TrimSpace(in.Action)
	}
	name, url := deref(in.Name), deref(in.URL)

	switch kind {
	case KindAdd:
		if name == "" || url == "" {
			return nil, &ArgumentError{Err: ErrMissingField, Text: "Error: add requires name and url"}
		}
		active := true
		if present(in.Active) {
			if err := json.Unmarshal(in.Active, &active); err != nil {
				return nil, &ArgumentError{Err: ErrInvalidArgument, Text: "Error: active must be a boolean"}
			}
		}
		return AddAction{Name: name, URL: url, Active: active}, nil

	case KindRemove, KindToggle, KindSetActive:
		m := Match{URL: url, Name: name}
		if m.Empty() {
			return nil, &ArgumentError{Err: ErrMissingField, Text: "Error: remove/toggle/set_active requires url or name"}
		}
		switch kind {
		case KindRemove:
			return RemoveAction{Match: m}, nil
		case KindToggle:
			return ToggleAction{Match: m}, nil
		}
		var active bool
		if !present(in.Active) || json.Unmarshal(in.Active, &active) != nil {
			return nil, &ArgumentError{Err: ErrInvalidArgument, Text: "Error: set_active requires active boolean"}
		}
		return SetActiveAction{Match: m, Active: active}, nil

	case "":
		return nil, &ArgumentError{Err: ErrMissingField, Text: "Error: action is required"}
	default:
		return nil, &ArgumentError{Err: ErrInvalidArgument, Text: fmt.Sprintf("Error: unknown action %q", kind)}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}
