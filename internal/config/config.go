// Package config resolves krepko settings from flags, KREPKO_* environment
// variables, an optional krepko.yaml file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/svintsoff78/krepko/internal/loader"
	"github.com/svintsoff78/krepko/internal/report"
	"github.com/svintsoff78/krepko/internal/runner"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. KREPKO_BASE_URL.
	EnvPrefix = "KREPKO"
	// FileName is the config file looked up in the working directory,
	// without extension.
	FileName = "krepko"
)

// Keys, shared by the config file, the environment and flag bindings.
const (
	KeyBaseURL = "base_url"
	KeyPattern = "pattern"
	KeyMode    = "mode"
	KeyTags    = "tags"
	KeyFormat  = "format"
	KeyVerbose = "verbose"
	KeyNoColor = "no_color"
)

// DefaultBaseURL is used when nothing else names a base URL.
const DefaultBaseURL = "http://localhost:3000"

// Config is the resolved configuration.
type Config struct {
	BaseURL string   `mapstructure:"base_url"`
	Pattern string   `mapstructure:"pattern"`
	Mode    string   `mapstructure:"mode"`
	Tags    []string `mapstructure:"tags"`
	Format  string   `mapstructure:"format"`
	Verbose bool     `mapstructure:"verbose"`
	NoColor bool     `mapstructure:"no_color"`

	// File is the config file that was read, empty when none was.
	File string `mapstructure:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Pattern: loader.DefaultPattern,
		Mode:    string(runner.DefaultMode),
		Tags:    []string{},
		Format:  report.FormatText,
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile is an explicit config file. It must exist.
	ConfigFile string
	// Dir is searched for krepko.yaml when ConfigFile is empty. Defaults to
	// the working directory.
	Dir string
	// Flags are bound by name: base-url, pattern, mode, tags, format,
	// verbose and no-color. Flags missing from the set are skipped.
	Flags *pflag.FlagSet
}

var flagKeys = map[string]string{
	"base-url": KeyBaseURL,
	"pattern":  KeyPattern,
	"mode":     KeyMode,
	"tags":     KeyTags,
	"format":   KeyFormat,
	"verbose":  KeyVerbose,
	"no-color": KeyNoColor,
}

// Load resolves and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault(KeyBaseURL, defaults.BaseURL)
	v.SetDefault(KeyPattern, defaults.Pattern)
	v.SetDefault(KeyMode, defaults.Mode)
	v.SetDefault(KeyTags, defaults.Tags)
	v.SetDefault(KeyFormat, defaults.Format)
	v.SetDefault(KeyVerbose, defaults.Verbose)
	v.SetDefault(KeyNoColor, defaults.NoColor)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	file, err := readConfigFile(v, opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.File = file
	cfg.Tags = normalizeTags(cfg.Tags)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return "", fmt.Errorf("config file not found: %s", opts.ConfigFile)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
		return opts.ConfigFile, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	v.SetConfigName(FileName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// normalizeTags trims tags and drops empty ones. "a, b" from the
// environment arrives as one element per comma.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks mode, format and base URL.
func (c *Config) Validate() error {
	if _, err := runner.ParseMode(c.Mode); err != nil {
		return err
	}
	if !report.IsValidFormat(c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, report.ValidFormats)
	}
	if c.Pattern == "" {
		return errors.New("pattern must not be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", c.BaseURL)
	}
	return nil
}

// RunMode returns the parsed mode. Validate must have succeeded.
func (c *Config) RunMode() runner.Mode {
	m, _ := runner.ParseMode(c.Mode)
	return m
}
