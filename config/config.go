package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = 120 * time.Second

// Config holds the Black Duck server connection settings and the report
// defaults. Values come from (highest precedence first): environment
// variables, a .env file in the working directory, and an optional YAML
// settings file.
type Config struct {
	URL       string `yaml:"url"`
	APIToken  string `yaml:"api_token"` // Inline, ${ENV_VAR}, or file path
	TrustCert bool   `yaml:"trust_cert"`
	Timeout   time.Duration
	Locale    string `yaml:"locale"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load assembles the configuration. A .env file is consulted first so that
// the same BLACKDUCK_* variables the vendor's own tooling reads work from a
// file as well as from the environment. path may be empty.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is the common case.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env file")
	}

	cfg := &Config{Locale: "en_US", Timeout: defaultTimeout}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvironment(cfg)

	cfg.APIToken = ResolveToken(cfg.APIToken)
	if cfg.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}
	return nil
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("BLACKDUCK_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("BLACKDUCK_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("BLACKDUCK_TIMEOUT"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			logger.Warnf("Ignoring invalid BLACKDUCK_TIMEOUT %q", v)
		} else {
			cfg.TimeoutSeconds = seconds
		}
	}
	if v := os.Getenv("BLACKDUCK_TRUST_CERT"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warnf("Ignoring invalid BLACKDUCK_TRUST_CERT %q", v)
		} else {
			cfg.TrustCert = trust
		}
	}
}

// FindConfigFile searches for a settings file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
	}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		".report-enhancer.yaml",
		".report-enhancer.yml",
		"report-enhancer.yaml",
		"report-enhancer.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// ResolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	// Expand ${ENV_VAR} references
	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// If the resolved value is a path to an existing file, read the token from it
	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// MaskToken renders a token for log output without revealing it.
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	return strings.Repeat("*", 20)
}

// validate checks for required configuration values.
func validate(cfg *Config) error {
	if cfg.URL == "" {
		return errors.New("Black Duck URL is required (set BLACKDUCK_URL or url in the config file)")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return fmt.Errorf("Black Duck URL %q must start with http:// or https://", cfg.URL)
	}
	if cfg.APIToken == "" {
		return errors.New(
			"API token is required (set BLACKDUCK_API_TOKEN, or api_token inline, via ${ENV_VAR}, or as file path)",
		)
	}
	return nil
}
