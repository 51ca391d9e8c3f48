package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/conduit-lang/relmap/internal/orm/repository"
)

// FileName is the configuration file looked up when no path is given
const FileName = "relmap.yml"

// EnvPrefix prefixes environment overrides, e.g. RELMAP_LOG_LEVEL
const EnvPrefix = "RELMAP"

// DefaultRepository is the repository name DATABASE_URL configures
const DefaultRepository = "default"

// Config represents the relmap configuration
type Config struct {
	Log          LogConfig                    `mapstructure:"log"`
	Structs      StructsConfig                `mapstructure:"structs"`
	Repositories map[string]repository.Config `mapstructure:"repositories"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StructsConfig represents struct compiler configuration
type StructsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

var namespacePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// Load loads the configuration from path, or from relmap.yml in the current
// directory or one of its parents when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("structs.namespace", "Structs")

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else if root, err := FindRoot(); err == nil {
		v.SetConfigFile(filepath.Join(root, FileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Repositories) == 0 {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			adapter, err := AdapterForURL(url)
			if err != nil {
				return nil, err
			}
			config.Repositories = map[string]repository.Config{
				DefaultRepository: {Adapter: adapter, URL: url},
			}
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// AdapterForURL guesses the adapter type from a connection URL scheme
func AdapterForURL(url string) (string, error) {
	scheme, _, ok := strings.Cut(url, ":")
	if !ok {
		return "", fmt.Errorf("cannot infer adapter from url without scheme: %s", url)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3", "file":
		return "sqlite", nil
	case "redis", "rediss":
		return "redis", nil
	default:
		return "", fmt.Errorf("cannot infer adapter from url scheme %q", scheme)
	}
}

// FindRoot walks up from the working directory to the first directory
// holding relmap.yml
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if !namespacePattern.MatchString(cfg.Structs.Namespace) {
		return fmt.Errorf("structs.namespace must be a capitalized identifier, got: %q", cfg.Structs.Namespace)
	}
	for name, repo := range cfg.Repositories {
		if repo.Adapter == "" {
			return fmt.Errorf("repositories.%s.adapter is required", name)
		}
	}
	return nil
}
