package sessions

import (
	"sort"

	"github.com/Tiliavir/wakalyze/internal/model"
)

// DefaultMaxGapSeconds is the longest silence still counted as continuous work.
const DefaultMaxGapSeconds int64 = 15 * 60

// segment accumulates the timestamps of one session while it is open.
type segment struct {
	project *string
	times   []int64
}

func (s segment) close(maxGap int64) model.Session {
	return model.Session{
		Start:   s.times[0],
		End:     s.times[len(s.times)-1],
		Seconds: EstimateSeconds(s.times, maxGap),
		Project: s.project,
	}
}

// Build groups a day's heartbeats into sessions. A session continues while
// consecutive heartbeats share a project and are at most maxGap seconds
// apart. Heartbeats repeating the previous timestamp are ignored.
func Build(raw []model.RawHeartbeat, maxGap int64) []model.Session {
	entries := ExtractEntries(raw)
	if len(entries) == 0 {
		return []model.Session{}
	}

	var out []model.Session
	cur := segment{project: entries[0].Project, times: []int64{entries[0].Time}}
	prev := entries[0].Time

	for _, e := range entries[1:] {
		if e.Time == prev {
			continue
		}
		gap := e.Time - prev
		if gap <= maxGap && sameProject(e.Project, cur.project) {
			cur.times = append(cur.times, e.Time)
		} else {
			out = append(out, cur.close(maxGap))
			cur = segment{project: e.Project, times: []int64{e.Time}}
		}
		prev = e.Time
	}
	return append(out, cur.close(maxGap))
}

// EstimateSeconds sums the gaps between distinct sorted timestamps, counting
// only gaps of at most maxGap seconds.
func EstimateSeconds(times []int64, maxGap int64) int64 {
	if len(times) < 2 {
		return 0
	}
	seen := make(map[int64]struct{}, len(times))
	uniq := make([]int64, 0, len(times))
	for _, t := range times {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	var total int64
	for i := 1; i < len(uniq); i++ {
		gap := uniq[i] - uniq[i-1]
		if gap > 0 && gap <= maxGap {
			total += gap
		}
	}
	return total
}

func sameProject(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
