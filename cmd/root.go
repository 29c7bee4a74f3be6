package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/wakalyze/internal/logging"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "wakalyze",
	Short: "List Wakapi working hours per day",
	Long: `wakalyze fetches heartbeats from a Wakapi server and lists the contiguous
work sessions of each day in a month or a week of a month.

Running wakalyze with a month as the first argument is the same as
running "wakalyze analyze".`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error, off")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
}

// usageError marks errors caused by malformed command lines. They exit with
// status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return usageError{err}
	}
	logging.Init(logging.Config{
		Level:  level,
		Output: cmd.ErrOrStderr(),
		Pretty: logging.IsTerminal(cmd.ErrOrStderr()),
	})
	return nil
}

// withImplicitAnalyze inserts the analyze subcommand when the first argument
// is neither a known subcommand nor a help or version flag.
func withImplicitAnalyze(args []string) []string {
	if len(args) == 0 {
		return args
	}
	switch args[0] {
	case "help", "completion", "-h", "--help", "-v", "--version":
		return args
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == args[0] || c.HasAlias(args[0]) {
			return args
		}
	}
	return append([]string{analyzeCmd.Name()}, args...)
}

// Execute is the entry point called from main. It returns the process exit
// code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(withImplicitAnalyze(args))
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", rootCmd.Name())
		return 2
	}
	return 1
}
