package main

import (
	"fmt"
	"os"

	"github.com/aretw0/pairgate/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pairgate",
	Short: "pairgate links a messaging account by phone-number pairing code",
	Long: `pairgate asks the messaging network for a pairing code for a phone number,
returns it to the caller and, once the phone confirms, sends the resulting
session credentials back to that number.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":          "log_level",
	"log-format":         "log_format",
	"protocol-log-level": "protocol_log_level",
	"sessions-dir":       "sessions_dir",
	"addr":               "addr",
	"exit-on-success":    "exit_on_success",
	"response-timeout":   "response_timeout",
	"redis-addr":         "redis.addr",
}

// loadConfig merges the config file, environment and flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}

	overrides := map[string]any{}
	for name, key := range flagKeys {
		if cmd.Flags().Changed(name) {
			overrides[key] = cmd.Flags().Lookup(name).Value.String()
		}
	}
	return config.Load(path, os.Environ(), overrides)
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file (env "+config.EnvPrefix+"CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: auto, text, json")
	rootCmd.PersistentFlags().String("protocol-log-level", "silent", "Protocol library log level, or silent")
	rootCmd.PersistentFlags().String("sessions-dir", "sessions", "Directory holding per-number session state")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the cross-replica session lock")
}
