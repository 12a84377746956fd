/*
main.go - Application entry point

PURPOSE:
  Command-line entry point for the ACA compliance engine. Subcommands serve
  the HTTP API or assess a batch document from disk.

COMMANDS:
  serve       Start the HTTP API
  assess      Assess a JSON/YAML batch file and print the result
  tax-years   List registered tax-year tables
  version     Print version information

CONFIGURATION:
  Flags > environment (ACA_*) > config file > defaults. The config file is
  ./aca.yaml or $HOME/.config/aca/aca.yaml unless --config is given.
  See aca.yaml.example for every key.

SEE ALSO:
  - serve.go: HTTP server startup and graceful shutdown
  - assess.go: Offline batch assessment
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/aca-engine/aca"
	"github.com/warp/aca-engine/factory"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "aca",
		Short: "ACA employer-mandate compliance engine",
		Long: `aca determines full-time status, Form 1095-C Line 14/15 codes,
affordability and Section 4980H penalty exposure for a workforce.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./aca.yaml or $HOME/.config/aca/aca.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().Int("tax-year", aca.DefaultTaxYear, "default tax year")
	rootCmd.PersistentFlags().StringSlice("tax-year-file", nil, "additional tax-year table (JSON or YAML), repeatable")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("engine.tax_year", rootCmd.PersistentFlags().Lookup("tax-year"))
	_ = viper.BindPFlag("engine.tax_year_files", rootCmd.PersistentFlags().Lookup("tax-year-file"))

	viper.SetDefault("engine.workers", 0)
	viper.SetDefault("engine.chunk_size", aca.DefaultChunkSize)

	// Add commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(taxYearsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/aca")
		}
		viper.SetConfigName("aca")
		viper.SetConfigType("yaml")
	}

	// Environment variables: ACA_SERVER_PORT, ACA_ENGINE_TAX_YEAR, ...
	viper.SetEnvPrefix("ACA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if path := viper.ConfigFileUsed(); path != "" {
		log.Debug().Str("path", path).Msg("config loaded")
	}
	return nil
}

func setupLogging() error {
	level, err := zerolog.ParseLevel(viper.GetString("logging.level"))
	if err != nil || level == zerolog.NoLevel {
		return fmt.Errorf("invalid log level: %s", viper.GetString("logging.level"))
	}
	zerolog.SetGlobalLevel(level)

	switch format := viper.GetString("logging.format"); format {
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	return nil
}

// loadRegistry returns the built-in tables plus any configured files.
func loadRegistry() (*aca.Registry, error) {
	registry := aca.DefaultRegistry()
	for _, path := range viper.GetStringSlice("engine.tax_year_files") {
		c, err := factory.LoadTaxYearFile(path)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Info().Int("tax_year", c.TaxYear).Str("path", path).Msg("tax year loaded")
	}
	return registry, nil
}

func taxYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tax-years",
		Short: "List registered tax-year tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-10s %-10s %-10s %s\n", "YEAR", "THRESHOLD", "4980H(a)", "4980H(b)", "ALE")
			for _, y := range registry.Years() {
				c, _ := registry.ForYear(y)
				fmt.Fprintf(out, "%-6d %-10s %-10s %-10s %d\n",
					c.TaxYear, c.AffordabilityThreshold.String(),
					c.Penalty4980HA.StringFixed(2), c.Penalty4980HB.StringFixed(2), c.ALEThreshold)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aca version %s\n", version)
		},
	}
}
