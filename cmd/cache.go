package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/wakalyze/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local heartbeat cache",
	Long: `Heartbeats of completed days are cached on disk so that past months can be
analyzed again without contacting the server. Use --no-cache on analyze to
bypass the cache for a single run.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print cache directory",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := storage.BaseDir()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), base)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached heartbeats",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := storage.BaseDir()
		if err != nil {
			return err
		}
		if err := storage.Clear(base); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", base)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
