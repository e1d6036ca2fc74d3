package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/briefing"
)

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	for _, spec := range []string{"", "   ", "not a cron"} {
		if _, err := NewScheduler(spec, &fakeRunner{}, nil, nil); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}

func TestScheduler_Next(t *testing.T) {
	base := time.Date(2025, 1, 2, 6, 30, 0, 0, time.UTC)
	cases := []struct {
		spec string
		want time.Time
	}{
		{"@daily", time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)},
		{"0 7 * * *", time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		s, err := NewScheduler(tc.spec, &fakeRunner{}, nil, nil)
		if err != nil {
			t.Fatalf("NewScheduler(%q): %v", tc.spec, err)
		}
		if got := s.Next(base); !got.Equal(tc.want) {
			t.Fatalf("%s: expected %v got %v", tc.spec, tc.want, got)
		}
	}
}

func TestScheduler_FireRunsBriefing(t *testing.T) {
	r := &fakeRunner{}
	s, err := NewScheduler("@daily", r, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.fire(context.Background(), time.Now()) {
		t.Fatalf("expected slot to run")
	}
	r.err = briefing.ErrRunInProgress
	if s.fire(context.Background(), time.Now()) {
		t.Fatalf("busy runner should skip the slot")
	}
	r.err = errors.New("boom")
	if !s.fire(context.Background(), time.Now()) {
		t.Fatalf("a failed run still consumes the slot")
	}
	if r.calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", r.calls.Load())
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler("@daily", &fakeRunner{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}
