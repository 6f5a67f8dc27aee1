package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/iksnae/council-session/internal"
	"github.com/iksnae/council-session/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	serverURL string
	stateDir  string
	verbose   bool
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"
)

// logFile is the open logging.file, if any
var logFile *os.File

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "council",
	Short: "Ask a council of language models and browse their deliberations",
	Long: `A terminal client for the council service.

A question goes to several models at once. In formal mode they answer
independently, rank each other's answers anonymously, and a chairman model
writes the final answer. In chat mode they talk in turns, one message at a
time.

Features:
  • Ask one-off questions or continue an existing session
  • Full-screen chat with a session sidebar
  • Rename, pin, file, share and branch sessions
  • Choose which council members take part
  • Export transcripts (JSONL, Markdown, YAML, JSON)
  • Offline copies of sessions you have opened

Quick Start:
  council ask "Why is the sky blue?"     # Run a formal round
  council chat                           # Open the interactive client
  council list                           # List your sessions
  council export <session-id> -f md      # Export a transcript`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(config.Get())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		closeLogFile()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/council/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Council service URL (default http://localhost:8001)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for preferences and the offline cache")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("state.dir", rootCmd.PersistentFlags().Lookup("state-dir"))

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.ConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("COUNCIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			internal.LogWarn("Failed to read config %s: %v", cfgFile, err)
		}
		return
	}
	internal.LogDebug("Using config file: %s", viper.ConfigFileUsed())
}

// setupLogging applies the logging section; --verbose overrides the level
func setupLogging(cfg *config.Config) error {
	level, err := internal.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	internal.SetLogLevel(level)
	if verbose {
		internal.SetVerbose(true)
	}
	internal.SetLogFormat(cfg.Logging.Format)

	closeLogFile()
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		internal.SetLogOutput(f)
	} else {
		internal.SetLogOutput(os.Stderr)
	}
	return nil
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
		internal.SetLogOutput(os.Stderr)
	}
}

// loadConfig returns the validated configuration, reporting every problem
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
