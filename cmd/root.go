package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"wealth/daily/internal/config"
	"wealth/daily/internal/logging"
)

var (
	rootDir    string
	configPath string
	verbose    bool
)

// Loaded by the root PersistentPreRunE for every subcommand.
var (
	settings *config.Config
	logger   *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "daily",
	Short:         "Daily personal-finance lesson generator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		root, err := DiscoverRoot()
		if err != nil {
			return err
		}
		cfg, err := loadSettings(root, configPath)
		if err != nil {
			return err
		}
		log, err := logging.New(verbose)
		if err != nil {
			return err
		}
		settings = cfg
		logger = log
		logger.Debug("settings loaded", "root", root, "history", cfg.HistoryPath(), "model", cfg.LLM.Model)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so an in-flight request or backoff stops promptly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Repository root containing data/ai/wealth")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to daily.yaml (default <root>/daily.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")
}

// DiscoverRoot finds the repository root using priority: env > flag > walk-up.
func DiscoverRoot() (string, error) {
	// 1. Environment variable
	if env := os.Getenv("WEALTH_DAILY_ROOT"); env != "" {
		if isDir(env) {
			return filepath.Abs(env)
		}
		return "", fmt.Errorf("WEALTH_DAILY_ROOT is not a directory: %s", env)
	}

	// 2. CLI flag
	if rootDir != "" {
		if isDir(rootDir) {
			return filepath.Abs(rootDir)
		}
		return "", fmt.Errorf("--root is not a directory: %s", rootDir)
	}

	// 3. Walk up from CWD looking for the data dir, then a git checkout
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return walkUp(dir)
}

func walkUp(start string) (string, error) {
	for _, marker := range []string{config.DefaultDataDir, ".git"} {
		dir := start
		for {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return "", fmt.Errorf("no repository root found (set WEALTH_DAILY_ROOT, use --root, or run inside a checkout containing %s)", config.DefaultDataDir)
}

// loadSettings reads the YAML config, loads <root>/.env once and validates.
func loadSettings(root, path string) (*config.Config, error) {
	if path == "" {
		path = filepath.Join(root, config.DefaultConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Paths.Root = root
	if err := config.InitEnv(cfg, filepath.Join(root, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
