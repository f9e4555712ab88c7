// Package config loads ribbit's configuration from a YAML file and
// RIBBIT_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/splee/ribbit/internal/credential"
)

// defaultSender is the address destruction notifications come from.
const defaultSender = "ingress-support@google.com"

// IMAPConfig holds the mailbox connection settings. The password is
// deliberately absent: it comes from the environment or the system
// keyring, never from the config file.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	Peek     bool   `mapstructure:"peek" yaml:"peek"`
}

// Config is the top-level application configuration.
type Config struct {
	IMAP IMAPConfig `mapstructure:"imap" yaml:"imap"`

	// Sender filters which messages are fetched.
	Sender string `mapstructure:"sender" yaml:"sender"`

	// StorePath is the SQLite database recording events and processed
	// message IDs. Empty disables persistence.
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
}

// DefaultPath returns the default config file location,
// ~/.config/ribbit/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "ribbit", "config.yaml")
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ribbit.db")
	}
	return filepath.Join(home, ".config", "ribbit", "ribbit.db")
}

func defaults() *Config {
	return &Config{
		IMAP: IMAPConfig{
			Host:    "imap.gmail.com",
			Port:    "993",
			Mailbox: "INBOX",
		},
		Sender:    defaultSender,
		StorePath: DefaultStorePath(),
	}
}

// Load reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults; environment variables such as
// RIBBIT_IMAP_USERNAME override file values either way.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ribbit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default (even an empty one): Unmarshal only
	// decodes known keys, and env vars alone do not register them.
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.peek", false)
	v.SetDefault("sender", defaultSender)
	v.SetDefault("store_path", DefaultStorePath())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Password resolves the IMAP password: the RIBBIT_IMAP_PASSWORD
// environment variable wins, then the system keyring entry written by
// `ribbit creds set`. Credentials never live in the config file or
// the source tree.
func (c *Config) Password() (string, error) {
	if pw := os.Getenv("RIBBIT_IMAP_PASSWORD"); pw != "" {
		return pw, nil
	}

	pw, err := credential.Get(credential.KeyIMAPPassword)
	if err != nil {
		return "", fmt.Errorf(
			"no IMAP password: set RIBBIT_IMAP_PASSWORD or run `ribbit creds set` (%w)", err,
		)
	}

	return pw, nil
}
