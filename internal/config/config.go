// Package config loads tac's project configuration from tac.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root of tac's project configuration (§A.1).
type Config struct {
	Project   ProjectConfig   `toml:"project"`
	Git       GitConfig       `toml:"git"`
	LLM       LLMConfig       `toml:"llm"`       // genesis protoblock generation + error analysis
	CodingLLM LLMConfig       `toml:"coding_llm"` // coding agent, may differ from the analysis model
	Profiles  map[string]LLMConfig `toml:"profiles"` // per trusty-agent model overrides (e.g. "plausibility")
	TrustyAgents TrustyAgentsConfig `toml:"trusty_agents"`
	Indexer   IndexerConfig   `toml:"indexer"`
	EventBus  EventBusConfig  `toml:"eventbus"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Storage   StorageConfig   `toml:"storage"`
	MCP       MCPConfig       `toml:"mcp"`
}

// ProjectConfig identifies the codebase tac is operating on.
type ProjectConfig struct {
	Name         string   `toml:"name"`
	Root         string   `toml:"root"`
	IgnoreFile   string   `toml:"ignore_file"`   // defaults to .tacignore
	HaltAfterFail bool    `toml:"halt_after_fail"`
	MaxRetries   int      `toml:"max_retries"`
}

// GitConfig controls the VCS capability (§6.2).
type GitConfig struct {
	Remote        string `toml:"remote"`
	BaseBranch    string `toml:"base_branch"`
	NoGit         bool   `toml:"no_git"`
	AutoPushAfter bool   `toml:"auto_push_after_commit"`
}

// LLMConfig describes one LLM provider binding.
type LLMConfig struct {
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	APIKeyEnv    string `toml:"api_key_env"`
	MaxTokens    int    `toml:"max_tokens"`
	BaseURL      string `toml:"base_url"`
	Thinking     string `toml:"thinking"`
	MaxRetries   int    `toml:"max_retries"`
	RetryBackoff string `toml:"retry_backoff"`
}

// TrustyAgentsConfig lists which built-in trusty agents run by default and
// any per-project prompt overrides (§4.5).
type TrustyAgentsConfig struct {
	Default []string          `toml:"default"`
	Prompts map[string]string `toml:"prompts"`

	// Pass-criterion thresholds per the §4.5 built-in agent taxonomy.
	MinCodeReviewGrade    string  `toml:"min_code_review_grade"`    // letter grade, A..D pass, F fail
	MinPlausibilityStars  float64 `toml:"min_plausibility_stars"`   // 0.0-5.0
	MinWebGrade           string  `toml:"min_web_grade"`            // web_simple/web_compare pass threshold
	PytestArgs            []string `toml:"pytest_args"`
	PytestTimeoutSeconds  int      `toml:"pytest_timeout_seconds"`
}

// IndexerConfig controls the codebase indexer (§6.5).
type IndexerConfig struct {
	Path        string `toml:"path"`         // bleve index directory
	CachePath   string `toml:"cache_path"`   // sqlite hash-cache file
	Watch       bool   `toml:"watch"`
	MaxFileSize int64  `toml:"max_file_size_bytes"`
}

// EventBusConfig controls optional NATS-backed progress-event fan-out.
type EventBusConfig struct {
	NATSURL string `toml:"nats_url"` // empty disables network fan-out; in-process hook always runs
	Subject string `toml:"subject"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol"` // otlp, noop
}

// StorageConfig controls where protoblock/session state is persisted.
type StorageConfig struct {
	Path string `toml:"path"`
}

// MCPConfig configures external MCP tool servers a trusty agent or the
// coding agent may call out to (§B).
type MCPConfig struct {
	Servers map[string]MCPServerConfig `toml:"servers"`
}

// MCPServerConfig configures one MCP server connection.
type MCPServerConfig struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}

// New returns a Config populated with tac's defaults.
func New() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:          ".",
			IgnoreFile:    ".tacignore",
			HaltAfterFail: false,
			MaxRetries:    4,
		},
		Git: GitConfig{
			BaseBranch: "main",
		},
		LLM: LLMConfig{
			MaxTokens:    8192,
			MaxRetries:   5,
			RetryBackoff: "60s",
		},
		TrustyAgents: TrustyAgentsConfig{
			Default:              []string{"pytest", "plausibility"},
			MinCodeReviewGrade:   "D",
			MinPlausibilityStars: 3.0,
			MinWebGrade:          "B",
			PytestTimeoutSeconds: 300,
		},
		Indexer: IndexerConfig{
			Path:        ".tac/index",
			CachePath:   ".tac/index_cache.db",
			MaxFileSize: 1 << 20,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
		Storage: StorageConfig{
			Path: ".tac",
		},
	}
}

// Default is an alias for New, matching the teacher's naming.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file, starting from defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads tac.toml from the current directory, or returns
// defaults untouched if the file does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "tac.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// GetAPIKey returns the API key for the main analysis/genesis LLM.
func (c *Config) GetAPIKey() string {
	return apiKeyFor(c.LLM)
}

// GetCodingAPIKey returns the API key for the coding-agent LLM binding,
// falling back to the analysis LLM's key when unset.
func (c *Config) GetCodingAPIKey() string {
	if c.CodingLLM.Provider == "" && c.CodingLLM.APIKeyEnv == "" {
		return c.GetAPIKey()
	}
	return apiKeyFor(c.CodingLLM)
}

func apiKeyFor(llm LLMConfig) string {
	envVar := llm.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(llm.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// DefaultAPIKeyEnv returns the conventional environment variable name for
// a provider when api_key_env is left unset.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}

// GetProfile returns the LLM config for a named trusty-agent profile,
// falling back to the main analysis LLM config for unset fields.
func (c *Config) GetProfile(name string) LLMConfig {
	if name == "" {
		return c.LLM
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return c.LLM
	}
	if profile.Provider == "" {
		profile.Provider = c.LLM.Provider
	}
	if profile.APIKeyEnv == "" {
		profile.APIKeyEnv = c.LLM.APIKeyEnv
	}
	if profile.MaxTokens == 0 {
		profile.MaxTokens = c.LLM.MaxTokens
	}
	return profile
}

// GetProfileAPIKey returns the API key for a named profile.
func (c *Config) GetProfileAPIKey(name string) string {
	return apiKeyFor(c.GetProfile(name))
}
