package cmd

import (
	"fmt"
	"os"
	"strings"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank ledger ingestion and reconciliation tool",
	Long: `Reconciler ingests bank notification emails and monthly account statements
into a local ledger and reconciles the two sources against each other.

Every document is ingested at most once per profile: re-running a job over
the same files is a no-op.

Examples:
  reconciler ingest statement --profile alice statement-2025-10.json
  reconciler ingest messages --profile alice inbox/*.eml
  reconciler reconcile --profile alice --statement statement-2025-10.json --messages inbox/
  reconciler reports list --profile alice`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler().HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", config.DefaultStoragePath, "path to the SQLite ledger")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyStoragePath, rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// RECONCILER_STORAGE_PATH, RECONCILER_LOG_LEVEL, ...
	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := viper.GetString(config.KeyLogLevel)
	if viper.GetBool("verbose") && !cmd.Flags().Changed("log-level") {
		level = string(logger.DebugLevel)
	}

	logConfig, err := config.CreateLoggerConfig(level, viper.GetString(config.KeyLogFormat), viper.GetString(config.KeyLogFile))
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", level, err).
			WithSuggestion("Use --log-level debug|info|warn|error and --log-format text|json")
	}
	if err := logger.Configure(logConfig); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", logConfig, err)
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
