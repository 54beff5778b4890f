package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corey/scoreweb/internal/adapters/bbolt"
	"github.com/corey/scoreweb/internal/app"
)

// Persistent flags shared by every subcommand.
var (
	configPath string
	verbose    bool
	logJSON    bool
	logToFile  bool
)

var rootCmd = &cobra.Command{
	Use:           "scoreweb",
	Short:         "Keyword relevance ranking for documents",
	Long:          "Ranks the documents of a directory by exact keyword occurrence counts and keeps a history of rankings.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// workspaceRoot returns the directory holding .scoreweb/ (cwd).
func workspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return dir, nil
}

// newLogger builds the root logger from the persistent flags.
// Logs go to stderr (or .scoreweb/log/scoreweb.log with --log-file) so
// stdout carries only rankings.
func newLogger(paths *app.Paths) (*logrus.Entry, io.Closer, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if logJSON {
		l.SetFormatter(new(logrus.JSONFormatter))
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}

	var closer io.Closer = io.NopCloser(nil)
	if logToFile {
		if err := paths.EnsureDirs(); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(paths.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		l.SetOutput(f)
		closer = f
	}
	return l.WithField("app", "scoreweb"), closer, nil
}

// loadConfig reads --config, or .scoreweb/config.toml when not given.
func loadConfig(paths *app.Paths) (*app.Config, error) {
	path := configPath
	if path == "" {
		path = paths.Config
	}
	cfg, found, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if !found && configPath != "" {
		return nil, fmt.Errorf("config file %s not found", configPath)
	}
	return cfg, nil
}

// openStore opens the run history database for command, explaining lock
// contention.
func openStore(paths *app.Paths, command string) (*bbolt.Store, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create .scoreweb dirs: %w", err)
	}
	store, err := bbolt.NewStore(paths.DB)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("cannot open history: %s", diagnoseDBLock(paths, command))
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default .scoreweb/config.toml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&logJSON, "log-json", false, "Log as JSON")
	pf.BoolVar(&logToFile, "log-file", false, "Log to .scoreweb/log/scoreweb.log instead of stderr")

	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(configCmd)
}
