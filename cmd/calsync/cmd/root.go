package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/inkwell/calsync/internal/adapter/caldav"
	"github.com/inkwell/calsync/internal/adapter/google"
	"github.com/inkwell/calsync/internal/adapter/outlook"
	"github.com/inkwell/calsync/internal/coordinator"
	"github.com/inkwell/calsync/internal/core"
	"github.com/inkwell/calsync/internal/logging"
)

var (
	cfgFile string
	logger  *zap.Logger
	coord   *coordinator.Coordinator
	intCfg  core.IntegrationConfig
)

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Sync bookings to Google, Outlook and CalDAV calendars",
	Long: `calsync mirrors a booking schedule into external calendars and answers
availability questions across all of them.

Configure providers in the providers file, authenticate each one with
'calsync auth', then run 'calsync sync --watch' to keep remote calendars
reconciled.`,
	PersistentPreRunE: initRuntime,
	SilenceUsage:      true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/calsync/config.yaml)")
	rootCmd.PersistentFlags().String("providers-file", "", "providers file (default is $HOME/.config/calsync/providers.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	viper.BindPFlag("providers_file", rootCmd.PersistentFlags().Lookup("providers-file"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "calsync")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CALSYNC")
	viper.AutomaticEnv()

	viper.SetDefault("providers_file", "~/.config/calsync/providers.yaml")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initRuntime builds the logger, loads the providers file and wires the
// coordinator. Commands that only print help don't need any of it.
func initRuntime(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	logger, err = logging.New(viper.GetString("log_level"), viper.GetString("log_format"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	intCfg, err = loadIntegrationConfig(expandPath(viper.GetString("providers_file")))
	if err != nil {
		return err
	}
	intCfg = intCfg.Normalize()

	adapters := map[string]core.Adapter{
		core.ProviderGoogle:  google.NewGoogleAdapter(logger),
		core.ProviderOutlook: outlook.NewOutlookAdapter(logger),
		core.ProviderCalDAV:  caldav.NewCalDAVAdapter(logger),
	}

	coord, err = coordinator.New(intCfg, adapters, logger)
	if err != nil {
		return err
	}
	return nil
}

// providersFile is the on-disk shape of the providers config. Durations
// are strings ("15m", "30s") so the file stays hand-editable.
type providersFile struct {
	Providers      []core.Provider `yaml:"providers"`
	SyncInterval   string          `yaml:"sync_interval"`
	ConflictPolicy string          `yaml:"conflict_policy"`
	CallTimeout    string          `yaml:"call_timeout"`
	Timezone       string          `yaml:"timezone"`
	Reminders      []struct {
		Method        string `yaml:"method"`
		MinutesBefore int    `yaml:"minutes_before"`
	} `yaml:"default_reminders"`
}

func loadIntegrationConfig(path string) (core.IntegrationConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// No providers configured yet; auth and providers commands still work.
		return core.IntegrationConfig{}, nil
	}
	if err != nil {
		return core.IntegrationConfig{}, fmt.Errorf("read providers file: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return core.IntegrationConfig{}, fmt.Errorf("parse providers file %s: %w", path, err)
	}

	cfg := core.IntegrationConfig{
		Providers:      file.Providers,
		ConflictPolicy: core.ConflictPolicy(file.ConflictPolicy),
		Timezone:       file.Timezone,
	}
	if file.SyncInterval != "" {
		if cfg.SyncInterval, err = time.ParseDuration(file.SyncInterval); err != nil {
			return core.IntegrationConfig{}, fmt.Errorf("parse sync_interval: %w", err)
		}
	}
	if file.CallTimeout != "" {
		if cfg.CallTimeout, err = time.ParseDuration(file.CallTimeout); err != nil {
			return core.IntegrationConfig{}, fmt.Errorf("parse call_timeout: %w", err)
		}
	}
	for _, r := range file.Reminders {
		method := core.ReminderPopup
		if r.Method == "email" {
			method = core.ReminderEmail
		}
		cfg.DefaultReminders = append(cfg.DefaultReminders, core.Reminder{
			Method:        method,
			MinutesBefore: r.MinutesBefore,
		})
	}
	return cfg, nil
}

// connectProviders authenticates every configured provider from stored
// credentials so fan-out commands see them as enabled. Providers that
// fail stay disconnected and are reported by the fan-out itself.
func connectProviders(cmd *cobra.Command) {
	for _, p := range coord.Providers() {
		if !p.SyncEnabled {
			continue
		}
		if err := coord.AuthenticateProvider(cmd.Context(), p.Name, p.Credentials); err != nil {
			logger.Warn("provider authentication failed",
				zap.String("provider", p.Name), zap.Error(err))
		}
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// parseDate accepts YYYY-MM-DD plus the shortcuts "today" and "tomorrow".
func parseDate(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(s) {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case "tomorrow":
		t := now.Add(24 * time.Hour)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, 'today' or 'tomorrow')", s)
	}
	return t, nil
}

// rangeFromFlags reads --from/--to/--days into a concrete window.
func rangeFromFlags(cmd *cobra.Command) (time.Time, time.Time, error) {
	now := time.Now()
	start := now
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	days, _ := cmd.Flags().GetInt("days")

	if fromStr != "" {
		var err error
		if start, err = parseDate(fromStr, now); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	end := start.Add(time.Duration(days) * 24 * time.Hour)
	if toStr != "" {
		t, err := parseDate(toStr, now)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t.Add(24*time.Hour - time.Second)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end of range must be after start")
	}
	return start, end, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD, 'today', 'tomorrow')")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD, 'today', 'tomorrow')")
	cmd.Flags().IntP("days", "d", 7, "Days to cover when --to is not given")
}
