// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the xlsx2pdf CLI.
//
// xlsx2pdf renders Excel workbooks to PDF through an external conversion
// engine and strips the engine's evaluation watermark from the result.
//
// Implements: docs/ARCHITECTURE § Command Line, § Configuration.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/xlsx2pdf/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger writes diagnostics to stderr. Per-item status goes to stdout.
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// rootCmd is the base command for the xlsx2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "xlsx2pdf",
	Short: "Convert Excel workbooks to watermark-free PDFs",
	Long: `xlsx2pdf converts .xlsx workbooks to PDF, one page per sheet, using
LibreOffice (local, containerized, or through a Gotenberg service) and then
removes the evaluation watermark text from every page.

Use convert for batch conversion, verify to check finished PDFs for leftover
watermark text, history to inspect past runs, and serve to drive conversions
over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if err := setLogLevel(level); err != nil {
			return err
		}

		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			logger.Info().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./xlsx2pdf.yaml or ~/.config/xlsx2pdf/xlsx2pdf.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of credential key files")
	rootCmd.PersistentFlags().String("log-level", "info", "diagnostic log level: debug, info, warn, error")
}

// setLogLevel applies a --log-level value to logger.
func setLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger = logger.Level(lvl)
	return nil
}

func initConfig() {
	// An invalid level is reported by PersistentPreRunE.
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	_ = setLogLevel(level)

	envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
	if err := secrets.LoadEnv(envFile); err != nil {
		logger.Warn().Err(err).Msg("loading env file")
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("xlsx2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "xlsx2pdf"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("XLSX2PDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	readConfig(viper.GetViper(), logger)
}

// readConfig reads the config file into v. A missing file is silent; any
// other read error is logged and the defaults stay in effect.
func readConfig(v *viper.Viper, log zerolog.Logger) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn().Err(err).Msg("reading config")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
