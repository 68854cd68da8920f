package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/runproc/internal/supervisor"
	"github.com/psantana5/runproc/pkg/logging"
)

var (
	cfgFile  string
	logLevel string
	jsonLogs bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "runproc",
	Short: "Run a task in an isolated worker process",
	Long: `runproc executes a single registered task in a child OS process,
mirrors the worker's lifecycle back to the caller, and translates
SIGINT/SIGTERM into cooperative cancellation of the running task.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status. A worker
// that was hard-terminated propagates its own exit status.
func ExitCode(err error) int {
	var terminated *supervisor.TerminatedError
	if errors.As(err, &terminated) && terminated.ExitCode > 0 {
		return terminated.ExitCode
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.runproc/config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config or info)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".runproc"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("runproc")
	viper.AutomaticEnv()
	viper.BindEnv("log_level", "RUNPROC_LOG_LEVEL")

	if err := viper.ReadInConfig(); err == nil {
		if logLevel == "" {
			logLevel = viper.GetString("log_level")
		}
	}
}

// newLogger builds the CLI logger from flags and config.
func newLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(logLevel), jsonLogs)
}
