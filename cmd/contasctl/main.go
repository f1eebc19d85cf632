package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/services"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "contasctl",
		Short: "Administer the contas accounts payable store",
		Long: `contasctl works directly on the contas store: list and report payables,
project recurring bills, move data in and out through backups, taxonomy files
and spreadsheets.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./contasctl.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "data backend (memory, sqlite, postgres)")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")
	rootCmd.PersistentFlags().String("legacy-dir", "", "directory holding legacy local records")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("sqlite_path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("legacy_dir", rootCmd.PersistentFlags().Lookup("legacy-dir"))

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(recurringCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(taxonomyCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("contasctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CONTASCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadConfig starts from the environment the server uses and lets flags,
// CONTASCTL_* variables and the config file override the store selection.
func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if viper.IsSet("backend") {
		cfg.DataBackend = viper.GetString("backend")
	}
	if viper.IsSet("sqlite_path") {
		cfg.SQLiteDBPath = viper.GetString("sqlite_path")
	}
	if viper.IsSet("database_url") {
		cfg.DatabaseURL = viper.GetString("database_url")
	}
	if viper.IsSet("legacy_dir") {
		cfg.LegacyDir = viper.GetString("legacy_dir")
	}
	cfg.LogLevel = viper.GetString("log_level")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withSession opens the store, runs fn and waits for its writes to land.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *services.Session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.SlogLevel(), log.ComponentApp)
	ctx := cmd.Context()

	rt, err := cli.OpenSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, rt.Session)
	if err := rt.Close(ctx); err != nil && runErr == nil {
		return fmt.Errorf("save changes: %w", err)
	}
	return runErr
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "contasctl", version)
		},
	}
}
