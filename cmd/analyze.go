package cmd

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/wakalyze/internal/analyze"
	"github.com/Tiliavir/wakalyze/internal/calendar"
	"github.com/Tiliavir/wakalyze/internal/config"
	"github.com/Tiliavir/wakalyze/internal/logging"
	"github.com/Tiliavir/wakalyze/internal/report"
	"github.com/Tiliavir/wakalyze/internal/sessions"
	"github.com/Tiliavir/wakalyze/internal/storage"
	"github.com/Tiliavir/wakalyze/internal/wakapi"
)

var errInvalidMaxGap = errors.New("--max-gap-minutes must be greater than 0")

var (
	analyzeFilter        string
	analyzeUser          string
	analyzeBaseURL       string
	analyzeTimeout       float64
	analyzeMaxGapMinutes float64
	analyzeConcurrency   int
	analyzeFormat        string
	analyzeNoCache       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <YYYY/MM> [week]",
	Short: "Analyze Wakapi heartbeats for a month or week",
	Long: `Analyze lists the work sessions of every day in a month, or in one week of
it. Week 1 starts on the Sunday on or before the first of the month.`,
	Example: `  wakalyze 2026/02
  wakalyze 2026/02 2 -f api,web
  wakalyze analyze 2026/02 --format summary`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFilter, "filter", "f", "", "Filter by project substring (comma-separated terms = OR)")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "Wakapi user (or env WAKAPI_USER)")
	analyzeCmd.Flags().StringVar(&analyzeBaseURL, "base-url", "", "Wakapi base URL (or env WAKAPI_BASE_URL)")
	analyzeCmd.Flags().Float64Var(&analyzeTimeout, "timeout", 15, "HTTP request timeout in seconds")
	analyzeCmd.Flags().Float64Var(&analyzeMaxGapMinutes, "max-gap-minutes", float64(sessions.DefaultMaxGapSeconds)/60,
		"Max gap in minutes between heartbeats to treat as continuous work")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", analyze.DefaultConcurrency, "Number of days fetched in parallel")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", string(report.FormatText), "Output format: text, json, csv, summary")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Always fetch from the server, bypassing the local cache")
}

// analysisRange resolves the dates to analyze and the report label.
func analysisRange(month string, weekArg []string) (start, end time.Time, label string, err error) {
	firstDay, err := calendar.ParseMonth(month)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	if len(weekArg) == 0 {
		return firstDay, calendar.MonthLastDay(firstDay), calendar.MonthLabel(firstDay), nil
	}

	week, err := strconv.Atoi(weekArg[0])
	if err != nil {
		return time.Time{}, time.Time{}, "", usageErrorf("invalid week %q: must be a number", weekArg[0])
	}
	start, end, err = calendar.WeekRange(firstDay, week)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return start, end, fmt.Sprintf("%s week %d", calendar.MonthLabel(firstDay), week), nil
}

// maxGapSeconds converts the --max-gap-minutes value to whole seconds.
func maxGapSeconds(minutes float64) (int64, error) {
	seconds := math.Trunc(minutes * 60)
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0, errInvalidMaxGap
	}
	if seconds >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(seconds), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(analyzeFormat)
	if err != nil {
		return usageError{err}
	}
	if analyzeConcurrency < 1 {
		return usageErrorf("--concurrency must be at least 1")
	}
	if math.IsNaN(analyzeTimeout) || analyzeTimeout <= 0 {
		return usageErrorf("--timeout must be greater than 0")
	}

	cfg := loadConfig()
	env := config.NewEnv()
	baseURL := config.ResolveBaseURL(analyzeBaseURL, cfg, env)

	start, end, label, err := analysisRange(args[0], args[1:])
	if err != nil {
		return err
	}
	user, err := config.ResolveUser(analyzeUser, cfg, env)
	if err != nil {
		return err
	}
	apiKey, err := config.ResolveAPIKey(cfg, env)
	if err != nil {
		return err
	}
	maxGap, err := maxGapSeconds(analyzeMaxGapMinutes)
	if err != nil {
		return err
	}

	timeout := time.Duration(analyzeTimeout * float64(time.Second))
	client := wakapi.NewAPIKeyClient(baseURL, user, apiKey, timeout)
	var source analyze.HeartbeatSource = client
	if !analyzeNoCache {
		if base, err := storage.BaseDir(); err != nil {
			logging.Warn().Err(err).Msg("heartbeat cache disabled")
		} else {
			source = &storage.CachedSource{Source: client, Dir: storage.AccountDir(base, client.Server(), client.User())}
		}
	}

	dates := calendar.IterDates(start, end)
	logging.Info().
		Str("base_url", baseURL).
		Str("user", client.User()).
		Str("from", calendar.FormatDate(start)).
		Str("to", calendar.FormatDate(end)).
		Msg("loading heartbeats")

	visible := logging.IsTerminal(cmd.ErrOrStderr())
	bar := progressbar.NewOptions(len(dates),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Loading heartbeats"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(visible),
	)
	analyzer := &analyze.Analyzer{
		Source:        source,
		MaxGapSeconds: maxGap,
		Concurrency:   analyzeConcurrency,
		OnDay:         func(time.Time) { _ = bar.Add(1) },
	}
	days, err := analyzer.Run(cmd.Context(), dates)
	if err != nil {
		if visible {
			_ = bar.Clear()
		}
		return err
	}
	_ = bar.Finish()

	var filter *string
	if cmd.Flags().Changed("filter") {
		filter = &analyzeFilter
	}
	days = sessions.Filter(days, filter)

	return report.Write(cmd.OutOrStdout(), format, days, label, time.Local)
}
