package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBaseURL         = "http://localhost:8002/api/"
	defaultHTTPTimeoutSeconds = 10
	defaultLogLevel           = "info"
	defaultPageSize           = 10
	defaultToastSeconds       = 4
	defaultMarkdownStyle      = "dark"
)

const (
	StorageBackendFile  = "file"
	StorageBackendBbolt = "bbolt"
)

// DotEnvFiles are loaded, in order, before env overrides are applied.
var DotEnvFiles = []string{".env", ".env.local"}

type CoreConfig struct {
	API           CoreAPIConfig           `toml:"api"`
	Auth          CoreAuthConfig          `toml:"auth"`
	Logging       CoreLoggingConfig       `toml:"logging"`
	Storage       CoreStorageConfig       `toml:"storage"`
	Notifications CoreNotificationsConfig `toml:"notifications"`
}

type CoreAPIConfig struct {
	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

type CoreAuthConfig struct {
	Token     string `toml:"token"`
	TokenPath string `toml:"token_path"`
}

type CoreLoggingConfig struct {
	Level string `toml:"level"`
}

type CoreStorageConfig struct {
	Backend string `toml:"backend"`
}

type CoreNotificationsConfig struct {
	PageSize int `toml:"page_size"`
}

type UIConfig struct {
	Toast    UIToastConfig    `toml:"toast"`
	Markdown UIMarkdownConfig `toml:"markdown"`
}

type UIToastConfig struct {
	Seconds int `toml:"seconds"`
}

type UIMarkdownConfig struct {
	Style string `toml:"style"`
}

// envOverrides is read from the process environment; empty values leave the
// file config untouched.
type envOverrides struct {
	APIBaseURL         string `env:"DALGO_API_URL"`
	Token              string `env:"DALGO_TOKEN"`
	LogLevel           string `env:"DALGO_LOG_LEVEL"`
	StorageBackend     string `env:"DALGO_STORAGE_BACKEND"`
	HTTPTimeoutSeconds int    `env:"DALGO_HTTP_TIMEOUT_SECONDS"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		API: CoreAPIConfig{
			BaseURL:            defaultAPIBaseURL,
			HTTPTimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		Logging: CoreLoggingConfig{
			Level: defaultLogLevel,
		},
		Storage: CoreStorageConfig{
			Backend: StorageBackendFile,
		},
		Notifications: CoreNotificationsConfig{
			PageSize: defaultPageSize,
		},
	}
}

// LoadCoreConfig reads config.toml from the data dir, then applies .env files
// and DALGO_* environment overrides.
func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	cfg, err := loadCoreConfigFromPath(path)
	if err != nil {
		return CoreConfig{}, err
	}
	if err := loadDotEnv(DotEnvFiles); err != nil {
		return CoreConfig{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func (c CoreConfig) APIBaseURL() string {
	raw := strings.TrimSpace(c.API.BaseURL)
	if raw == "" {
		return defaultAPIBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	if _, err := url.Parse(raw); err != nil {
		return defaultAPIBaseURL
	}
	return strings.TrimRight(raw, "/") + "/"
}

func (c CoreConfig) HTTPTimeout() time.Duration {
	seconds := c.API.HTTPTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultHTTPTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func (c CoreConfig) StorageBackend() string {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case StorageBackendBbolt:
		return StorageBackendBbolt
	default:
		return StorageBackendFile
	}
}

func (c CoreConfig) PageSize() int {
	if c.Notifications.PageSize <= 0 {
		return defaultPageSize
	}
	return c.Notifications.PageSize
}

func (c CoreConfig) StaticToken() string {
	return strings.TrimSpace(c.Auth.Token)
}

// ResolveTokenPath returns the configured token file, or the default one in
// the data dir.
func (c CoreConfig) ResolveTokenPath() (string, error) {
	path := strings.TrimSpace(c.Auth.TokenPath)
	if path == "" {
		return TokenPath()
	}
	return resolveConfigPath(path)
}

func DefaultUIConfig() UIConfig {
	return UIConfig{
		Toast: UIToastConfig{
			Seconds: defaultToastSeconds,
		},
		Markdown: UIMarkdownConfig{
			Style: defaultMarkdownStyle,
		},
	}
}

func LoadUIConfig() (UIConfig, error) {
	path, err := UIConfigPath()
	if err != nil {
		return UIConfig{}, err
	}
	return loadUIConfigFromPath(path)
}

func (c UIConfig) ToastDuration() time.Duration {
	seconds := c.Toast.Seconds
	if seconds <= 0 {
		seconds = defaultToastSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c UIConfig) MarkdownDark() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Markdown.Style), "light")
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func loadUIConfigFromPath(path string) (UIConfig, error) {
	cfg := DefaultUIConfig()
	if err := readTOML(path, &cfg); err != nil {
		return UIConfig{}, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func applyEnvOverrides(cfg *CoreConfig) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return err
	}
	if v := strings.TrimSpace(overrides.APIBaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(overrides.Token); v != "" {
		cfg.Auth.Token = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(overrides.StorageBackend); v != "" {
		cfg.Storage.Backend = v
	}
	if overrides.HTTPTimeoutSeconds > 0 {
		cfg.API.HTTPTimeoutSeconds = overrides.HTTPTimeoutSeconds
	}
	return nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
