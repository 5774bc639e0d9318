// Package config loads pairgate settings from defaults, an optional YAML or
// JSON file, PAIRGATE_* environment variables and command-line overrides, in
// that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAIRGATE_"

// Config is the full service configuration.
type Config struct {
	Addr             string        `mapstructure:"addr"`
	SessionsDir      string        `mapstructure:"sessions_dir"`
	DefaultSession   string        `mapstructure:"default_session"`
	ResponseTimeout  time.Duration `mapstructure:"response_timeout"`
	ExitOnSuccess    bool          `mapstructure:"exit_on_success"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	ProtocolLogLevel string        `mapstructure:"protocol_log_level"`
	LogMaskNumbers   bool          `mapstructure:"log_mask_numbers"`
	MaxRetries       int           `mapstructure:"max_retries"`

	Browser  Browser  `mapstructure:"browser"`
	Timings  Timings  `mapstructure:"timings"`
	Messages Messages `mapstructure:"messages"`
	Redis    Redis    `mapstructure:"redis"`
}

// Browser is the identity advertised to the phone.
type Browser struct {
	OS   string `mapstructure:"os"`
	Name string `mapstructure:"name"`
}

// Timings are the pauses of a pairing run.
type Timings struct {
	PairDelay    time.Duration `mapstructure:"pair_delay"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	CleanupDelay time.Duration `mapstructure:"cleanup_delay"`
}

// Messages are the texts sent around the credentials.
type Messages struct {
	Notice       string `mapstructure:"notice"`
	Confirmation string `mapstructure:"confirmation"`
}

// Redis enables the distributed session lock when Addr is set.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Defaults returns the built-in configuration.
// Empty message fields mean the pairing package defaults.
func Defaults() Config {
	return Config{
		Addr:             ":8000",
		SessionsDir:      "sessions",
		DefaultSession:   "session",
		ResponseTimeout:  2 * time.Minute,
		ExitOnSuccess:    true,
		LogLevel:         "info",
		LogFormat:        "auto",
		ProtocolLogLevel: "silent",
		LogMaskNumbers:   true,
		MaxRetries:       5,
		Browser: Browser{
			OS:   "Ubuntu",
			Name: "Chrome (Linux)",
		},
		Timings: Timings{
			PairDelay:    2 * time.Second,
			RetryDelay:   10 * time.Second,
			SettleDelay:  10 * time.Second,
			CleanupDelay: 100 * time.Millisecond,
		},
		Redis: Redis{
			Prefix:  "pairgate:",
			LockTTL: 10 * time.Minute,
		},
	}
}

// Keys lists every dotted configuration key.
var Keys = []string{
	"addr",
	"sessions_dir",
	"default_session",
	"response_timeout",
	"exit_on_success",
	"log_level",
	"log_format",
	"protocol_log_level",
	"log_mask_numbers",
	"max_retries",
	"browser.os",
	"browser.name",
	"timings.pair_delay",
	"timings.retry_delay",
	"timings.settle_delay",
	"timings.cleanup_delay",
	"messages.notice",
	"messages.confirmation",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.prefix",
	"redis.lock_ttl",
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load layers path (optional), environ and overrides over the defaults.
// Override keys use the dotted form from Keys.
func Load(path string, environ []string, overrides map[string]any) (Config, error) {
	merged := map[string]any{}

	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		merge(merged, file)
	}

	merge(merged, fromEnv(environ))

	for key, v := range overrides {
		setPath(merged, key, v)
	}

	cfg := Defaults()
	if err := decode(merged, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.SessionsDir == "" {
		errs = append(errs, errors.New("sessions_dir must not be empty"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries))
	}
	if c.ResponseTimeout <= 0 {
		errs = append(errs, errors.New("response_timeout must be positive"))
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be auto, text or json, got %q", c.LogFormat))
	}
	for name, d := range map[string]time.Duration{
		"timings.pair_delay":    c.Timings.PairDelay,
		"timings.retry_delay":   c.Timings.RetryDelay,
		"timings.settle_delay":  c.Timings.SettleDelay,
		"timings.cleanup_delay": c.Timings.CleanupDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Redis.Enabled() && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("redis.lock_ttl must be positive"))
	}
	return errors.Join(errs...)
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	out := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return out, nil
}

func fromEnv(environ []string) map[string]any {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	out := map[string]any{}
	for _, key := range Keys {
		if v, ok := env[EnvName(key)]; ok {
			setPath(out, key, v)
		}
	}
	return out
}

func decode(input map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setPath stores v under a dotted key, creating nested maps.
func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
			cp := map[string]any{}
			merge(cp, sub)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}
