package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"

	"github.com/adrg/xdg"
	"github.com/rusq/osenv/v2"
	"gopkg.in/yaml.v3"
)

const APP_NAME = filemanager.AppName // application name used for config directory

const currentVersion = "1.0"

// Environment variables that override file configuration.
const (
	EnvStoragePath = "ARXIV_STORAGE_PATH"
	EnvConverter   = "ARXIV_CONVERTER"
	EnvMaxResults  = "ARXIV_MAX_RESULTS"
	EnvAPIURL      = "ARXIV_API_URL"
	EnvHTMLURL     = "ARXIV_HTML_URL"
)

// Defaults used when the config file omits a field.
const (
	DefaultConverterBinary = "unpdf"
	DefaultAPIBaseURL      = "https://export.arxiv.org/api/query"
	DefaultHTMLBaseURL     = "https://arxiv.org/html"
	DefaultMaxResults      = 50
	DefaultRequestInterval = 3 * time.Second
	DefaultMaxReadSize     = 50 << 20
)

// Config holds user configuration for arxivmcp.
type Config struct {
	// StorageDir is the flat directory holding downloaded papers.
	StorageDir string `yaml:"storage_dir"`
	// ConverterBinary is the PDF to Markdown executable looked up on PATH.
	ConverterBinary string `yaml:"converter_binary"`
	// APIBaseURL is the arXiv export API query endpoint.
	APIBaseURL string `yaml:"api_base_url"`
	// HTMLBaseURL is the arXiv HTML mirror; the paper id is appended.
	HTMLBaseURL string `yaml:"html_base_url"`
	// MaxResults caps search_papers results.
	MaxResults int `yaml:"max_results"`
	// RequestInterval is the minimum spacing between arXiv API requests.
	RequestInterval time.Duration `yaml:"request_interval"`
	// MaxReadSize limits the size of a paper returned by read_paper, in bytes.
	MaxReadSize int64 `yaml:"max_read_size"`

	Version  string `yaml:"version"`   // Track config version
	InitTime int64  `yaml:"init_time"` // Unix timestamp of first save
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location.
// If no config exists, it returns an error.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	logging.Debug("Loading config from", "path", configPath)
	if !exists {
		return nil, fmt.Errorf("no configuration found at %s", configPath)
	}

	return LoadFrom(configPath)
}

// LoadOrDefault loads the config at path, or from the standard location when path
// is empty. A missing file yields DefaultConfig. Environment overrides are applied
// and the result is validated.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path, _ = FindConfigFile()
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logging.Debug("No config file, using defaults", "path", path)
		def := DefaultConfig()
		cfg = &def
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom loads config from a specific path. Fields missing from the file keep
// their default values.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StorageDir:      filemanager.GetDefaultStorageDir(),
		ConverterBinary: DefaultConverterBinary,
		APIBaseURL:      DefaultAPIBaseURL,
		HTMLBaseURL:     DefaultHTMLBaseURL,
		MaxResults:      DefaultMaxResults,
		RequestInterval: DefaultRequestInterval,
		MaxReadSize:     DefaultMaxReadSize,
		Version:         currentVersion,
		InitTime:        0, // Will be set during first save
	}
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	c.StorageDir = filemanager.ExpandPath(osenv.Value(EnvStoragePath, c.StorageDir))
	c.ConverterBinary = osenv.Value(EnvConverter, c.ConverterBinary)
	c.APIBaseURL = osenv.Value(EnvAPIURL, c.APIBaseURL)
	c.HTMLBaseURL = osenv.Value(EnvHTMLURL, c.HTMLBaseURL)

	if v := osenv.Value(EnvMaxResults, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logging.Warn("Ignoring invalid max results override", "env", EnvMaxResults, "value", v)
			return
		}
		c.MaxResults = n
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}
	if c.ConverterBinary == "" {
		return fmt.Errorf("converter_binary cannot be empty")
	}
	for name, raw := range map[string]string{"api_base_url": c.APIBaseURL, "html_base_url": c.HTMLBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("request_interval cannot be negative")
	}
	if c.MaxReadSize <= 0 {
		return fmt.Errorf("max_read_size must be positive, got %d", c.MaxReadSize)
	}
	return nil
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
