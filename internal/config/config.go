package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "tims.yaml"

// StateDirName is the default state directory, under the user's home.
const StateDirName = ".tims"

type Config struct {
	RestDomain   string   `yaml:"rest_domain"`
	CookieDomain string   `yaml:"cookie_domain"`
	SiteName     SiteName `yaml:"site_name"`
	StateDir     string   `yaml:"state_dir"`
	LogLevel     string   `yaml:"log_level"`
	InsecureHTTP bool     `yaml:"insecure_http"`
	Timeout      string   `yaml:"timeout"`
	Loader       Loader   `yaml:"loader"`
}

type SiteName struct {
	Long  string `yaml:"long"`
	Short string `yaml:"short"`
}

type Loader struct {
	// InitialPending is the starting value of the pending request counter.
	// 1 shows the loader before the first request goes out.
	InitialPending int    `yaml:"initial_pending"`
	Spinner        string `yaml:"spinner"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Spinners lists the accepted loader.spinner values.
var Spinners = []string{"line", "dot", "minidot", "points", "meter"}

// DefaultConfig is what `tims init` writes.
func DefaultConfig() Config {
	return Config{
		RestDomain:   "${TIMS_REST_DOMAIN}",
		CookieDomain: "${TIMS_COOKIE_DOMAIN}",
		SiteName:     SiteName{Long: "Time & Invoice Management", Short: "tims"},
		LogLevel:     "info",
		Timeout:      "30s",
		Loader:       Loader{InitialPending: 0, Spinner: "dot"},
	}
}

// ValidateConfig validates the configuration and fills in derived defaults.
func ValidateConfig(cfg *Config) error {
	var validationErrors []string

	domain := strings.TrimSpace(cfg.RestDomain)
	if domain == "" {
		validationErrors = append(validationErrors, "rest_domain cannot be empty")
	} else if host := hostOf(domain); host == "" {
		validationErrors = append(validationErrors, fmt.Sprintf("rest_domain is not a valid domain: %s", domain))
	} else if strings.TrimSpace(cfg.CookieDomain) == "" {
		cfg.CookieDomain = host
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	} else if !contains(logLevels, cfg.LogLevel) {
		validationErrors = append(validationErrors, fmt.Sprintf("log_level must be one of %s", strings.Join(logLevels, ", ")))
	}

	if strings.TrimSpace(cfg.Timeout) != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d < 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("timeout must be a positive duration: %s", cfg.Timeout))
		}
	}

	if cfg.Loader.InitialPending < 0 || cfg.Loader.InitialPending > 1 {
		validationErrors = append(validationErrors, "loader.initial_pending must be 0 or 1")
	}
	if cfg.Loader.Spinner == "" {
		cfg.Loader.Spinner = "dot"
	} else if !contains(Spinners, cfg.Loader.Spinner) {
		validationErrors = append(validationErrors, fmt.Sprintf("loader.spinner must be one of %s", strings.Join(Spinners, ", ")))
	}

	if cfg.SiteName.Short == "" {
		cfg.SiteName.Short = cfg.SiteName.Long
	}

	if strings.TrimSpace(cfg.StateDir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			validationErrors = append(validationErrors, "state_dir cannot be empty when the home directory is unknown")
		} else {
			cfg.StateDir = filepath.Join(home, StateDirName)
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, zero when unset.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// DBPath is the SQLite file holding local storage and the session cookie.
func (c *Config) DBPath() string { return filepath.Join(c.StateDir, "state.db") }

// SecretPath is the per-install secret sealing the session token.
func (c *Config) SecretPath() string { return filepath.Join(c.StateDir, "secret") }

// LogPath is where the log file goes.
func (c *Config) LogPath() string { return filepath.Join(c.StateDir, "logs", "tims.log") }

// Load reads, interpolates and validates the config file at path.
// ${VAR} references are resolved from the OS environment first, then from a
// .env file next to the config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	text := os.Expand(string(data), func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAndValidateConfig loads tims.yaml from the working directory.
func LoadAndValidateConfig() (*Config, error) {
	if !ConfigExists() {
		return nil, errors.New("tims.yaml not found. Please run 'tims init' first")
	}
	return Load(ConfigFileName)
}

// WriteDefault writes DefaultConfig to path, refusing to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := DefaultConfig()
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("error generating config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return env, nil
}

func hostOf(domain string) string {
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func ConfigExists() bool {
	_, err := os.Stat(ConfigFileName)
	return !os.IsNotExist(err)
}

func GetConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ConfigFileName)
}
