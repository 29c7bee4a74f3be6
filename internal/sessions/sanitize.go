// Package sessions turns raw heartbeats into sessions and narrows them by
// project. Everything here is pure and does no I/O.
package sessions

import (
	"math"
	"sort"
	"strings"

	"github.com/Tiliavir/wakalyze/internal/model"
)

// ExtractEntries drops heartbeats without a usable time, truncates fractional
// seconds toward zero and returns the rest sorted by time. Equal times keep
// their input order.
func ExtractEntries(raw []model.RawHeartbeat) []model.HeartbeatEntry {
	entries := make([]model.HeartbeatEntry, 0, len(raw))
	for _, hb := range raw {
		ts, ok := epochSeconds(hb.Time)
		if !ok {
			continue
		}
		entries = append(entries, model.HeartbeatEntry{
			Time:    ts,
			Project: normalizeProject(hb.Project),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time < entries[j].Time
	})
	return entries
}

func epochSeconds(t *float64) (int64, bool) {
	if t == nil || math.IsNaN(*t) || math.IsInf(*t, 0) {
		return 0, false
	}
	v := math.Trunc(*t)
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func normalizeProject(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	project := *p
	return &project
}
