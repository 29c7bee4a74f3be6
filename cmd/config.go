package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/wakalyze/internal/config"
	"github.com/Tiliavir/wakalyze/internal/logging"
)

var errNothingToUpdate = errors.New("nothing to update: provide --key/--user/--base-url")

var (
	configSetKey          string
	configSetUser         string
	configSetBaseURL      string
	configSetClearKey     bool
	configSetClearUser    bool
	configSetClearBaseURL bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wakalyze stored config",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored config values",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set stored config values",
	Long: `Set stores the Wakapi API key, user and base URL. An empty value or a
--clear-* flag removes the stored value.`,
	Example: `  wakalyze config set --key "$TOKEN" --user alice
  wakalyze config set --clear-base-url`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().StringVar(&configSetKey, "key", "", "Wakapi API token")
	configSetCmd.Flags().StringVar(&configSetUser, "user", "", "Wakapi user")
	configSetCmd.Flags().StringVar(&configSetBaseURL, "base-url", "", "Wakapi base URL")
	configSetCmd.Flags().BoolVar(&configSetClearKey, "clear-key", false, "Remove stored key")
	configSetCmd.Flags().BoolVar(&configSetClearUser, "clear-user", false, "Remove stored user")
	configSetCmd.Flags().BoolVar(&configSetClearBaseURL, "clear-base-url", false, "Remove stored base URL")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// loadConfig reads the stored config, falling back to an empty one.
func loadConfig() config.Config {
	path, err := config.FilePath()
	if err != nil {
		logging.Warn().Err(err).Msg("ignoring stored config")
		return config.Config{}
	}
	return config.Load(path)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}
	printConfig(cmd.OutOrStdout(), path, config.Load(path))
	return nil
}

func printConfig(w io.Writer, path string, cfg config.Config) {
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "user: %s\n", orUnset(cfg.User))
	fmt.Fprintf(w, "base_url: %s\n", orUnset(cfg.BaseURL))
	fmt.Fprintf(w, "key: %s\n", orUnset(config.MaskSecret(cfg.Key)))
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// optionalFlag returns the flag value if it was given on the command line,
// or an error if it was combined with its --clear- counterpart.
func optionalFlag(cmd *cobra.Command, name string, value string, unset bool) (*string, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	if unset {
		return nil, fmt.Errorf("cannot use --%s and --clear-%s together", name, name)
	}
	return &value, nil
}

func runConfigSet(cmd *cobra.Command, _ []string) error {
	var u config.Update
	var err error
	if u.Key, err = optionalFlag(cmd, "key", configSetKey, configSetClearKey); err != nil {
		return err
	}
	if u.User, err = optionalFlag(cmd, "user", configSetUser, configSetClearUser); err != nil {
		return err
	}
	if u.BaseURL, err = optionalFlag(cmd, "base-url", configSetBaseURL, configSetClearBaseURL); err != nil {
		return err
	}
	u.ClearKey = configSetClearKey
	u.ClearUser = configSetClearUser
	u.ClearBaseURL = configSetClearBaseURL

	path, err := config.FilePath()
	if err != nil {
		return err
	}
	cfg, changed := u.Apply(config.Load(path))
	if !changed {
		return errNothingToUpdate
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	logging.Info().Str("path", path).Msg("config saved")
	return nil
}
