// Package analyze fetches heartbeats for a range of days and turns each day
// into sessions.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/wakalyze/internal/calendar"
	"github.com/Tiliavir/wakalyze/internal/logging"
	"github.com/Tiliavir/wakalyze/internal/model"
	"github.com/Tiliavir/wakalyze/internal/sessions"
)

// DefaultConcurrency is the number of days fetched in parallel.
const DefaultConcurrency = 4

// HeartbeatSource fetches the raw heartbeats of one day.
type HeartbeatSource interface {
	FetchHeartbeats(ctx context.Context, date time.Time) ([]model.RawHeartbeat, error)
}

// Analyzer coordinates fetching heartbeats and building sessions.
type Analyzer struct {
	Source HeartbeatSource
	// MaxGapSeconds below 1 means sessions.DefaultMaxGapSeconds.
	MaxGapSeconds int64
	// Concurrency bounds parallel fetches; values below 1 mean DefaultConcurrency.
	Concurrency int
	// OnDay, if set, is called once per completed day. It may be called
	// from several goroutines at once.
	OnDay func(date time.Time)
}

// Run analyzes dates and returns one DaySessions per date, in the order of
// dates. The first fetch error cancels outstanding fetches and is returned.
func (a *Analyzer) Run(ctx context.Context, dates []time.Time) ([]model.DaySessions, error) {
	if a.Source == nil {
		return nil, errors.New("analyzer not initialized: missing heartbeat source")
	}
	maxGap := a.MaxGapSeconds
	if maxGap <= 0 {
		maxGap = sessions.DefaultMaxGapSeconds
	}
	limit := a.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	logging.Debug().Int("days", len(dates)).Int("concurrency", limit).Msg("analyzing")

	days := make([]model.DaySessions, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, date := range dates {
		g.Go(func() error {
			raw, err := a.Source.FetchHeartbeats(gctx, date)
			if err != nil {
				return fmt.Errorf("fetching heartbeats for %s: %w", calendar.FormatDate(date), err)
			}
			days[i] = model.DaySessions{Date: date, Sessions: sessions.Build(raw, maxGap)}
			logging.Debug().
				Str("date", calendar.FormatDate(date)).
				Int("heartbeats", len(raw)).
				Int("sessions", len(days[i].Sessions)).
				Msg("day analyzed")
			if a.OnDay != nil {
				a.OnDay(date)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return days, nil
}
