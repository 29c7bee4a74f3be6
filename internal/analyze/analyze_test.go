package analyze_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/wakalyze/internal/analyze"
	"github.com/Tiliavir/wakalyze/internal/calendar"
	"github.com/Tiliavir/wakalyze/internal/model"
)

type fakeSource struct {
	mu       sync.Mutex
	byDate   map[string][]model.RawHeartbeat
	failOn   string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSource) FetchHeartbeats(ctx context.Context, date time.Time) ([]model.RawHeartbeat, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	// Give other goroutines a chance to overlap.
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	key := calendar.FormatDate(date)
	if key == f.failOn {
		return nil, errors.New("HTTP 500")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byDate[key], nil
}

func hb(t float64, project string) model.RawHeartbeat {
	return model.RawHeartbeat{Time: model.FloatPtr(t), Project: model.StringPtr(project)}
}

func TestRunPreservesDateOrder(t *testing.T) {
	src := &fakeSource{byDate: map[string][]model.RawHeartbeat{
		"2026-02-01": {hb(1000, "foo"), hb(1300, "foo")},
		"2026-02-03": {hb(5000, "bar")},
	}}
	dates := calendar.IterDates(calendar.Date(2026, 2, 1), calendar.Date(2026, 2, 7))

	var done atomic.Int32
	a := &analyze.Analyzer{
		Source:        src,
		MaxGapSeconds: 900,
		Concurrency:   3,
		OnDay:         func(time.Time) { done.Add(1) },
	}
	days, err := a.Run(context.Background(), dates)
	require.NoError(t, err)
	require.Len(t, days, 7)

	for i, d := range days {
		assert.True(t, d.Date.Equal(dates[i]), "day %d date = %s", i, calendar.FormatDate(d.Date))
	}
	require.Len(t, days[0].Sessions, 1)
	assert.Equal(t, int64(300), days[0].Sessions[0].Seconds)
	assert.Empty(t, days[1].Sessions)
	assert.NotNil(t, days[1].Sessions)
	require.Len(t, days[2].Sessions, 1)
	assert.Equal(t, "bar", days[2].Sessions[0].ProjectName())

	assert.Equal(t, int32(7), done.Load())
	assert.LessOrEqual(t, src.maxSeen.Load(), int32(3))
}

func TestRunFetchError(t *testing.T) {
	src := &fakeSource{failOn: "2026-02-04"}
	dates := calendar.IterDates(calendar.Date(2026, 2, 1), calendar.Date(2026, 2, 7))

	a := &analyze.Analyzer{Source: src, MaxGapSeconds: 900}
	days, err := a.Run(context.Background(), dates)
	require.Error(t, err)
	assert.Nil(t, days)
	assert.Contains(t, err.Error(), "2026-02-04")
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestRunDefaultsAndEmpty(t *testing.T) {
	a := &analyze.Analyzer{Source: &fakeSource{}}
	days, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestRunDefaultGap(t *testing.T) {
	src := &fakeSource{byDate: map[string][]model.RawHeartbeat{
		"2026-02-01": {hb(0, "foo"), hb(900, "foo"), hb(1801, "foo")},
	}}
	a := &analyze.Analyzer{Source: src}
	days, err := a.Run(context.Background(), []time.Time{calendar.Date(2026, 2, 1)})
	require.NoError(t, err)
	require.Len(t, days[0].Sessions, 2)
	assert.Equal(t, int64(900), days[0].Sessions[0].Seconds)
}

func TestRunMissingSource(t *testing.T) {
	_, err := (&analyze.Analyzer{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &analyze.Analyzer{Source: &fakeSource{}}
	_, err := a.Run(ctx, []time.Time{calendar.Date(2026, 2, 1)})
	assert.ErrorIs(t, err, context.Canceled)
}
