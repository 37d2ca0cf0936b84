package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"querychat/internal/answer"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/spf13/pflag"
)

const EnvPrefix = "QUERYCHAT_"

type AppConfig struct {
	Endpoint  string        `toml:"endpoint" env:"ENDPOINT"`
	Timeout   time.Duration `toml:"timeout" env:"TIMEOUT"`
	StatePath string        `toml:"state_path" env:"STATE_PATH"`
	LogPath   string        `toml:"log_path" env:"LOG_PATH"`
	LogLevel  string        `toml:"log_level" env:"LOG_LEVEL"`
	ExportDir string        `toml:"export_dir" env:"EXPORT_DIR"`
	NoPersist bool          `toml:"no_persist" env:"NO_PERSIST"`
}

// Defaults resolves data paths under ~/.local/share/querychat.
func Defaults() (AppConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return AppConfig{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".local", "share", "querychat")
	return AppConfig{
		Endpoint:  answer.DefaultEndpoint,
		StatePath: filepath.Join(dataDir, "state.sqlite"),
		LogPath:   filepath.Join(dataDir, "querychat.log"),
		LogLevel:  "info",
	}, nil
}

// DefaultFilePath is ~/.config/querychat/config.toml unless
// QUERYCHAT_CONFIG points elsewhere.
func DefaultFilePath() (string, error) {
	if fromEnv := os.Getenv(EnvPrefix + "CONFIG"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "querychat", "config.toml"), nil
}

// Load layers defaults, the TOML file at path (skipped when absent) and the
// QUERYCHAT_* environment. Flags are applied afterwards by BindFlags.
func Load(path string) (AppConfig, error) {
	cfg, err := Defaults()
	if err != nil {
		return cfg, err
	}
	if err := loadFile(&cfg, path); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *AppConfig, path string) error {
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// BindFlags registers flags whose defaults are the already loaded values, so
// an unset flag leaves the file/env value in place.
func BindFlags(fs *pflag.FlagSet, cfg *AppConfig) {
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "query-answering endpoint URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout (0 = transport default)")
	fs.StringVar(&cfg.StatePath, "state-path", cfg.StatePath, "path to SQLite preferences file")
	fs.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "path to log file (empty disables logging)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "override transcript export directory")
	fs.BoolVar(&cfg.NoPersist, "no-persist", cfg.NoPersist, "keep the theme preference in memory only")
}

func (c AppConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if !c.NoPersist && c.StatePath == "" {
		return errors.New("state path must not be empty unless --no-persist is set")
	}
	return nil
}

// GlamourStyle maps the theme flag onto a glamour standard style.
func GlamourStyle(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}
