package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/briefer/internal/briefing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// lockTTL keeps a fired slot claimed long enough for slower replicas to see it.
const lockTTL = 30 * time.Minute

// Scheduler triggers the briefing on a cron spec. With Rdb set, a SETNX lock
// per slot keeps replicas from running the same slot twice.
type Scheduler struct {
	Cron   string
	Runner Runner
	Rdb    *redis.Client
	Logger *zap.Logger
	Now    func() time.Time

	expr *cronexpr.Expression
}

// NewScheduler parses spec. Supports "@daily", "@hourly" and standard
// 5-field cron expressions.
func NewScheduler(spec string, runner Runner, rdb *redis.Client, logger *zap.Logger) (*Scheduler, error) {
	expr, err := parseCron(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Cron: spec, Runner: runner, Rdb: rdb, Logger: logger, Now: time.Now, expr: expr}, nil
}

func parseCron(spec string) (*cronexpr.Expression, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule.cron is empty")
	}
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule.cron %q: %w", spec, err)
	}
	return expr, nil
}

// Next returns the first slot strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Run blocks, firing one briefing per slot, until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		slot := s.Next(s.Now())
		if slot.IsZero() {
			return fmt.Errorf("schedule %q has no future slots", s.Cron)
		}
		s.Logger.Info("next scheduled briefing", zap.Time("at", slot))
		timer := time.NewTimer(time.Until(slot))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		s.fire(ctx, slot)
	}
}

// fire runs the briefing for slot unless another replica claimed it or a
// run is already in progress.
func (s *Scheduler) fire(ctx context.Context, slot time.Time) bool {
	if s.Rdb != nil {
		lockKey := "briefer:sched:lock:" + slot.UTC().Format(time.RFC3339)
		ok, err := s.Rdb.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil {
			s.Logger.Error("schedule lock failed", zap.String("key", lockKey), zap.Error(err))
			return false
		}
		if !ok {
			s.Logger.Info("scheduled slot claimed elsewhere", zap.Time("slot", slot))
			return false
		}
	}
	res, err := s.Runner.Run(ctx)
	switch {
	case errors.Is(err, briefing.ErrRunInProgress):
		s.Logger.Info("skipping scheduled briefing, run in progress", zap.Time("slot", slot))
		return false
	case err != nil:
		s.Logger.Error("scheduled briefing failed", zap.Time("slot", slot), zap.Error(err))
		return true
	}
	s.Logger.Info("scheduled briefing finished", zap.String("filename", res.Filename), zap.Int("turns", res.Turns))
	return true
}
