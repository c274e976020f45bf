package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openhiit/openhiit/internal/history"
	"github.com/openhiit/openhiit/internal/logging"
	"github.com/openhiit/openhiit/internal/output"
	"github.com/openhiit/openhiit/internal/settings"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	histStore *history.Store
	logger    *log.Logger
	logCloser io.Closer

	verbose bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "openhiit",
	Short: "Interval timer for high-intensity workouts",
	Long: `openhiit runs timed high-intensity interval sessions in the terminal:
alternating work and rest periods over a built-in exercise catalog, with
per-user session history, streaks, and weekly averages.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if histStore != nil {
			_ = histStore.Close()
		}
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/openhiit/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "openhiit")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("OPENHIIT")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "openhiit")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "openhiit.db"))
	viper.SetDefault("log_dir", defaultConfigDir)
	settings.SetDefaults(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	logger, logCloser = logging.NewFileLogger(viper.GetString("log_dir"))

	// The store is initialized lazily so config/version commands run
	// without touching the database.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (*history.Store, error) {
	if histStore != nil {
		return histStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := history.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	histStore = s
	return histStore, nil
}

// getSettings loads the validated session settings.
func getSettings() (*settings.Store, settings.Settings, error) {
	store := settings.NewStore(viper.GetViper(), logger)
	st, err := store.Load()
	if err != nil {
		return nil, settings.Settings{}, err
	}
	return store, st, nil
}
