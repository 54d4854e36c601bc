package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
)

var (
	cfgFile  string
	verbose  bool
	endpoint string

	// appConfig is loaded once flags are parsed, before any command runs.
	appConfig *config.Config
)

// version is overridden at build time with -ldflags "-X ...cli.version=...".
var version = "0.1.0-dev"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "qst-track",
	Short: "Report QST tracking events as URL beacons",
	Long: `qst-track builds tracking events and delivers them to a collection
endpoint as base64-encoded GET beacons. Events that cannot be delivered are
kept in a durable queue and re-sent on the next successful delivery or flush.

Report a single page view:
  qst-track report --type page --platform lab --location https://example.com/lab

Stream events from another process:
  producer | qst-track pipe`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		setupLogging(cfg.Logging, verbose)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./qst-track.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "collection endpoint (overrides tracking.url)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		path, err := config.ConfigFilePath(cfgFile)
		if err != nil {
			return nil, err
		}
		cfgFile = path
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if endpoint != "" {
		if err := config.ValidateEndpoint(endpoint); err != nil {
			return nil, fmt.Errorf("--endpoint: %w", err)
		}
		cfg.Tracking.URL = endpoint
	}

	return cfg, nil
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("qst-track version %s", version)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
