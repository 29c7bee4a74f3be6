// Package report renders analyzed days as text, JSON, CSV or a per-project
// summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/wakalyze/internal/calendar"
	"github.com/Tiliavir/wakalyze/internal/model"
)

// UnknownProject labels sessions without a project.
const UnknownProject = "unknown"

// Format selects an output renderer.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatSummary Format = "summary"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatSummary}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(names, ", "))
}

// FormatDuration formats seconds as e.g. "1h05m".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return fmt.Sprintf("%dh%02dm", h, m)
}

// FormatTime formats an epoch-second timestamp as a 12-hour clock time in
// loc, e.g. "9:30am".
func FormatTime(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format("3:04pm")
}

// FormatDateShort formats a date as month/day without padding, e.g. "2/7".
func FormatDateShort(d time.Time) string {
	return d.Format("1/2")
}

func projectLabel(s model.Session) string {
	if s.Project == nil {
		return UnknownProject
	}
	return *s.Project
}

// BuildLines renders the label followed by one block per day, separated by
// blank lines.
func BuildLines(days []model.DaySessions, label string, loc *time.Location) []string {
	lines := []string{label}
	for i, day := range days {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "- "+FormatDateShort(day.Date))
		for _, s := range day.Sessions {
			lines = append(lines, fmt.Sprintf("  - %s ~ %s (%s) %s",
				FormatTime(s.Start, loc),
				FormatTime(s.End, loc),
				FormatDuration(s.Seconds),
				projectLabel(s),
			))
		}
	}
	return lines
}

// Write renders days to w in the given format.
func Write(w io.Writer, f Format, days []model.DaySessions, label string, loc *time.Location) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, days, label, loc)
	case FormatCSV:
		return writeCSV(w, days, loc)
	case FormatSummary:
		return writeSummary(w, days, label)
	default:
		for _, line := range BuildLines(days, label, loc) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

type jsonSession struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Seconds  int64   `json:"seconds"`
	Duration string  `json:"duration"`
	Project  *string `json:"project"`
}

type jsonDay struct {
	Date         string        `json:"date"`
	TotalSeconds int64         `json:"total_seconds"`
	Sessions     []jsonSession `json:"sessions"`
}

type jsonReport struct {
	Label        string    `json:"label"`
	TotalSeconds int64     `json:"total_seconds"`
	Days         []jsonDay `json:"days"`
}

func writeJSON(w io.Writer, days []model.DaySessions, label string, loc *time.Location) error {
	out := jsonReport{Label: label, Days: make([]jsonDay, 0, len(days))}
	for _, day := range days {
		jd := jsonDay{Date: calendar.FormatDate(day.Date), Sessions: make([]jsonSession, 0, len(day.Sessions))}
		for _, s := range day.Sessions {
			jd.Sessions = append(jd.Sessions, jsonSession{
				Start:    time.Unix(s.Start, 0).In(loc).Format(time.RFC3339),
				End:      time.Unix(s.End, 0).In(loc).Format(time.RFC3339),
				Seconds:  s.Seconds,
				Duration: FormatDuration(s.Seconds),
				Project:  s.Project,
			})
			jd.TotalSeconds += s.Seconds
		}
		out.TotalSeconds += jd.TotalSeconds
		out.Days = append(out.Days, jd)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCSV(w io.Writer, days []model.DaySessions, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "start", "end", "seconds", "project"}); err != nil {
		return err
	}
	for _, day := range days {
		for _, s := range day.Sessions {
			record := []string{
				calendar.FormatDate(day.Date),
				time.Unix(s.Start, 0).In(loc).Format(time.RFC3339),
				time.Unix(s.End, 0).In(loc).Format(time.RFC3339),
				strconv.FormatInt(s.Seconds, 10),
				s.ProjectName(),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProjectTotal is the summed active time of one project.
type ProjectTotal struct {
	Project string
	Seconds int64
}

// Totals sums session seconds per project, sorted by project name. Sessions
// without a project are reported as UnknownProject.
func Totals(days []model.DaySessions) (totals []ProjectTotal, grandTotal int64) {
	byProject := map[string]int64{}
	for _, day := range days {
		for _, s := range day.Sessions {
			byProject[projectLabel(s)] += s.Seconds
			grandTotal += s.Seconds
		}
	}
	for p, sec := range byProject {
		totals = append(totals, ProjectTotal{Project: p, Seconds: sec})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Project < totals[j].Project })
	return totals, grandTotal
}

func writeSummary(w io.Writer, days []model.DaySessions, label string) error {
	totals, grandTotal := Totals(days)
	var b strings.Builder
	fmt.Fprintln(&b, label)
	fmt.Fprintln(&b, "--------------------------------")
	for _, t := range totals {
		fmt.Fprintf(&b, "%-20s%s\n", t.Project, FormatDuration(t.Seconds))
	}
	fmt.Fprintln(&b, "--------------------------------")
	fmt.Fprintf(&b, "%-20s%s\n", "Total", FormatDuration(grandTotal))
	_, err := io.WriteString(w, b.String())
	return err
}
