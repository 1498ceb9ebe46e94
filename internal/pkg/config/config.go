package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

const (
	// EnvPrefix prefixes every environment override, e.g. HOOKRELAY_TIMEOUT_MS.
	EnvPrefix = "HOOKRELAY_"

	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "HOOKRELAY_CONFIG_PATH"

	// MaxEndpoints bounds the endpoint list.
	MaxEndpoints = 10

	// MaxURLLength bounds a single server URL.
	MaxURLLength = 2048

	DefaultServerURL = "http://localhost:8080/hook"
	DefaultTimeoutMS = 5000

	maxTimeoutMS = 600000
)

// Output modes.
const (
	OutputDefault = "default"
	OutputPlain   = "plain"
	OutputJSON    = "json"
)

type Config struct {
	ServerURLs  []string         `koanf:"server_urls"`
	Endpoints   []EndpointConfig `koanf:"endpoints"`
	APIKey      string           `koanf:"api_key"`
	TimeoutMS   int              `koanf:"timeout_ms"`
	DeadlineMS  int              `koanf:"deadline_ms"`
	FailOpen    bool             `koanf:"fail_open"`
	Insecure    bool             `koanf:"insecure"`
	DenyPrivate bool             `koanf:"deny_private"`
	Retry       RetryConfig      `koanf:"retry"`

	Debug       bool   `koanf:"debug"`
	Quiet       bool   `koanf:"quiet"`
	LogLevel    string `koanf:"log_level"`
	Output      string `koanf:"output"`
	NoColor     bool   `koanf:"no_color"`
	NoInput     bool   `koanf:"no_input"`
	MetricsFile string `koanf:"metrics_file"`
	Tracing     bool   `koanf:"tracing"`

	Namespace NamespaceConfig `koanf:"namespace"`

	// Path is the config file that was loaded, if any.
	Path string `koanf:"-"`

	// Warnings lists non-fatal findings such as plain-http endpoints.
	Warnings []string `koanf:"-"`
}

// EndpointConfig overrides credentials or timeout for one server.
type EndpointConfig struct {
	URL       string `koanf:"url"`
	APIKey    string `koanf:"api_key"`
	TimeoutMS int    `koanf:"timeout_ms"`
}

type RetryConfig struct {
	NetworkAttempts int `koanf:"network_attempts"`
	ServerAttempts  int `koanf:"server_attempts"`
}

type NamespaceConfig struct {
	TypePrefix string `koanf:"type_prefix"`
	Source     string `koanf:"source"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is an explicit config file. It must exist.
	Path string

	// Overrides are applied last, keyed by koanf path (e.g. "fail_open").
	Overrides map[string]any

	// SearchPaths replaces the default file search list.
	SearchPaths []string
}

// Error is a configuration failure carrying its exit code.
type Error struct {
	Code domain.ExitCode
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the input-band code of the failure.
func (e *Error) ExitCode() domain.ExitCode {
	return e.Code
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultSearchPaths lists the config files tried when no path is given.
func DefaultSearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		for _, ext := range []string{"yaml", "yml", "json"} {
			paths = append(paths, filepath.Join(home, ".config", "hookrelay", "config."+ext))
		}
	}
	for _, ext := range []string{"yaml", "yml", "json"} {
		paths = append(paths, filepath.Join("/etc", "hookrelay", "config."+ext))
	}
	return paths
}

// Load layers defaults, the config file, environment and overrides.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		if p := os.Getenv(EnvConfigPath); p != "" {
			path, explicit = p, true
		}
	}
	if !explicit {
		search := opts.SearchPaths
		if search == nil {
			search = DefaultSearchPaths()
		}
		for _, p := range search {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) {
				return nil, &Error{Code: domain.ExitConfig, Path: path, Err: err}
			}
			return nil, &Error{Code: domain.ExitConfigParse, Path: path, Err: err}
		}
	}

	// Environment and overrides are collected separately so a server list
	// given there can replace the file's endpoints.
	upper := koanf.New(".")

	// Legacy variables first so HOOKRELAY_* wins.
	if err := upper.Load(env.Provider("HOOK_", ".", legacyEnvKey), nil); err != nil {
		return nil, &Error{Code: domain.ExitConfig, Err: err}
	}
	if err := upper.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigPath {
			return ""
		}
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, &Error{Code: domain.ExitConfig, Err: err}
	}

	for key, val := range opts.Overrides {
		if err := upper.Set(key, val); err != nil {
			return nil, &Error{Code: domain.ExitConfigInvalid, Err: fmt.Errorf("set %s: %w", key, err)}
		}
	}

	// server_url is the single-server spelling of server_urls.
	if !upper.Exists("server_urls") && upper.Exists("server_url") {
		upper.Set("server_urls", upper.Get("server_url"))
	}
	if upper.Exists("server_urls") && !upper.Exists("endpoints") {
		k.Delete("endpoints")
	}
	if err := k.Merge(upper); err != nil {
		return nil, &Error{Code: domain.ExitConfigInvalid, Err: err}
	}
	if !k.Exists("server_urls") && k.Exists("server_url") {
		k.Set("server_urls", k.Get("server_url"))
	}

	// Default values
	if !k.Exists("server_urls") && !k.Exists("endpoints") {
		k.Set("server_urls", []string{DefaultServerURL})
	}
	if !k.Exists("timeout_ms") {
		k.Set("timeout_ms", DefaultTimeoutMS)
	}
	if !k.Exists("output") {
		k.Set("output", OutputDefault)
	}
	if !k.Exists("log_level") {
		k.Set("log_level", "warn")
	}
	if !k.Exists("retry.network_attempts") {
		k.Set("retry.network_attempts", domain.DefaultRetryPolicy().NetworkAttempts)
	}
	if !k.Exists("retry.server_attempts") {
		k.Set("retry.server_attempts", domain.DefaultRetryPolicy().ServerAttempts)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &Error{Code: domain.ExitConfigParse, Path: path, Err: err}
	}
	cfg.Path = path
	cfg.ServerURLs = splitURLs(cfg.ServerURLs)

	// Substitute environment variables in API keys
	cfg.APIKey = substituteEnvVars(cfg.APIKey)
	for i := range cfg.Endpoints {
		cfg.Endpoints[i].APIKey = substituteEnvVars(cfg.Endpoints[i].APIKey)
	}

	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Parser()
	}
	return yaml.Parser()
}

func legacyEnvKey(s string) string {
	switch s {
	case "HOOK_SERVER_URL":
		return "server_urls"
	case "HOOK_API_KEY":
		return "api_key"
	default:
		return ""
	}
}

// splitURLs accepts both list entries and comma-separated strings.
func splitURLs(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, u := range strings.Split(entry, ",") {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Timeout returns the shared per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Deadline returns the overall dispatch budget, zero when unbounded.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.DeadlineMS) * time.Millisecond
}

// RetryPolicy returns the per-endpoint attempt budgets.
func (c *Config) RetryPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		NetworkAttempts: c.Retry.NetworkAttempts,
		ServerAttempts:  c.Retry.ServerAttempts,
	}
}

// ResolvedEndpoints returns the endpoint list in try order. Endpoints from
// the config file are used unless the environment or an override supplied
// server_urls, which Load resolves by dropping them. Missing per-endpoint
// values fall back to the shared api_key and timeout_ms.
func (c *Config) ResolvedEndpoints() []domain.Endpoint {
	if len(c.Endpoints) > 0 {
		eps := make([]domain.Endpoint, 0, len(c.Endpoints))
		for _, e := range c.Endpoints {
			ep := domain.Endpoint{URL: strings.TrimSpace(e.URL), APIKey: e.APIKey, Timeout: c.Timeout()}
			if ep.APIKey == "" {
				ep.APIKey = c.APIKey
			}
			if e.TimeoutMS > 0 {
				ep.Timeout = time.Duration(e.TimeoutMS) * time.Millisecond
			}
			eps = append(eps, ep)
		}
		return eps
	}

	eps := make([]domain.Endpoint, 0, len(c.ServerURLs))
	for _, u := range c.ServerURLs {
		eps = append(eps, domain.Endpoint{URL: u, APIKey: c.APIKey, Timeout: c.Timeout()})
	}
	return eps
}
