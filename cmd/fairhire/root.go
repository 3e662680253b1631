package main

import (
	"fmt"
	"log"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "fairhire"

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fairhire anonymizes resumes and scores skills against job descriptions",
		Long: `fairhire anonymizes resumes and scores skills against job descriptions.

` + heuristicHelp,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fairhire.yaml in ., ./configs, /etc/fairhire or ~/.fairhire)")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		log.Fatalf("binding debug flag: %v", err)
	}
	if err := viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json")); err != nil {
		log.Fatalf("binding json flag: %v", err)
	}
}

// loadConfig reads the configuration and builds the logger. The --debug and
// --json flags override the logging section.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if viper.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
	if viper.GetBool("json") {
		cfg.Logging.Format = "json"
	}

	logConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		logConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	l, err := logger.New(logConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, l, nil
}
