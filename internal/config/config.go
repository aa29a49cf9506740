// Package config loads orchestrator settings. Layers, lowest first:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	"github.com/roelfdiedericks/aiorchestrator/internal/paths"
)

// Config is the complete orchestrator configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Embeddings   embeddings.Config  `yaml:"embeddings"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen              string `yaml:"listen"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds,omitempty"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds,omitempty"`
	MaxBodyBytes        int64  `yaml:"maxBodyBytes,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	ShowCaller bool   `yaml:"showCaller,omitempty"`
}

// OrchestratorConfig bounds individual provider calls.
type OrchestratorConfig struct {
	AttemptTimeoutSeconds int `yaml:"attemptTimeoutSeconds,omitempty"`
	ProbeTimeoutSeconds   int `yaml:"probeTimeoutSeconds,omitempty"`
}

// ProvidersConfig has one entry per provider family.
type ProvidersConfig struct {
	PrimaryReasoning   llm.ProviderConfig `yaml:"primaryReasoning"`
	Fast               llm.ProviderConfig `yaml:"fast"`
	SecondaryReasoning llm.ProviderConfig `yaml:"secondaryReasoning"`
	Vision             llm.ProviderConfig `yaml:"vision"`
	General            llm.ProviderConfig `yaml:"general"`
	GeneralMini        llm.ProviderConfig `yaml:"generalMini"`
}

// LLM converts the provider settings into the registry's form.
func (p ProvidersConfig) LLM() llm.Config {
	return llm.Config{
		llm.PrimaryReasoning:   p.PrimaryReasoning,
		llm.Fast:               p.Fast,
		llm.SecondaryReasoning: p.SecondaryReasoning,
		llm.Vision:             p.Vision,
		llm.General:            p.General,
		llm.GeneralMini:        p.GeneralMini,
	}
}

const (
	DefaultListen       = ":8088"
	DefaultMaxBodyBytes = 1 << 20
)

// Default returns the built-in configuration: every provider unset, models at
// their defaults.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Listen:              DefaultListen,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 180,
			MaxBodyBytes:        DefaultMaxBodyBytes,
		},
		Logging: LoggingConfig{Level: "info"},
		Orchestrator: OrchestratorConfig{
			AttemptTimeoutSeconds: int(llm.DefaultAttemptTimeout.Seconds()),
			ProbeTimeoutSeconds:   int(llm.DefaultProbeTimeout.Seconds()),
		},
		Embeddings: embeddings.Config{
			Model:          embeddings.DefaultOllamaModel,
			OpenAIModel:    embeddings.DefaultOpenAIModel,
			TimeoutSeconds: embeddings.DefaultTimeoutSeconds,
		},
	}
	cfg.Providers.PrimaryReasoning.Model = llm.DefaultModels[llm.PrimaryReasoning]
	cfg.Providers.Fast.Model = llm.DefaultModels[llm.Fast]
	cfg.Providers.SecondaryReasoning.Model = llm.DefaultModels[llm.SecondaryReasoning]
	cfg.Providers.Vision.Model = llm.DefaultModels[llm.Vision]
	cfg.Providers.General.Model = llm.DefaultModels[llm.General]
	cfg.Providers.GeneralMini.Model = llm.DefaultModels[llm.GeneralMini]
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := paths.ExpandTilde(path)
		if err != nil {
			return nil, err
		}
		path = expanded
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
		L_debug("config: file loaded", "path", path)
	}

	env := fromEnv(getenv)
	if err := mergo.Merge(cfg, env, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge environment: %w", err)
	}

	cfg.shareGatewaySettings()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromEnv maps the recognised environment variables onto a sparse Config.
// Unset variables stay zero so they never override lower layers.
func fromEnv(getenv func(string) string) Config {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	var c Config
	c.Server.Listen = get("ORCHESTRATOR_LISTEN")
	c.Logging.Level = get("ORCHESTRATOR_LOG_LEVEL")

	c.Providers.PrimaryReasoning = llm.ProviderConfig{
		APIKey:  get("ANTHROPIC_API_KEY"),
		BaseURL: get("ANTHROPIC_BASE_URL"),
		Model:   get("ANTHROPIC_MODEL"),
	}
	c.Providers.Fast = llm.ProviderConfig{
		APIKey:  get("FAST_API_KEY"),
		BaseURL: get("FAST_BASE_URL"),
		Model:   get("FAST_MODEL"),
	}
	// Without SECONDARY_BASE_URL the fast gateway is shared in
	// shareGatewaySettings, after the file layer has had its say.
	c.Providers.SecondaryReasoning = llm.ProviderConfig{
		APIKey:  get("SECONDARY_API_KEY"),
		BaseURL: get("SECONDARY_BASE_URL"),
		Model:   get("SECONDARY_MODEL"),
	}
	c.Providers.Vision = llm.ProviderConfig{
		APIKey: get("XAI_API_KEY"),
		Model:  get("XAI_VISION_MODEL"),
	}
	c.Providers.General = llm.ProviderConfig{
		APIKey: get("OPENAI_API_KEY"),
		Model:  get("OPENAI_MODEL"),
	}
	c.Providers.GeneralMini = llm.ProviderConfig{
		Model: get("OPENAI_MINI_MODEL"),
	}

	c.Embeddings = embeddings.Config{
		URL:         get("EMBEDDING_URL"),
		Model:       get("EMBEDDING_MODEL"),
		OpenAIModel: get("OPENAI_EMBEDDING_MODEL"),
	}
	return c
}

// shareGatewaySettings fills gaps between providers that share an account or
// endpoint: secondary-reasoning uses the fast gateway, general-mini and the
// embedding fallback use the general credential.
func (c *Config) shareGatewaySettings() {
	p := &c.Providers
	if p.SecondaryReasoning.BaseURL == "" {
		p.SecondaryReasoning.BaseURL = p.Fast.BaseURL
	}
	if p.GeneralMini.APIKey == "" {
		p.GeneralMini.APIKey = p.General.APIKey
	}
	if c.Embeddings.OpenAIAPIKey == "" {
		c.Embeddings.OpenAIAPIKey = p.General.APIKey
	}
	if c.Embeddings.OpenAIBaseURL == "" {
		c.Embeddings.OpenAIBaseURL = p.General.BaseURL
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.maxBodyBytes must not be negative"))
	}
	if c.Orchestrator.AttemptTimeoutSeconds < 0 || c.Orchestrator.ProbeTimeoutSeconds < 0 {
		errs = append(errs, errors.New("orchestrator timeouts must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// Summary lists provider availability for logs, without credentials.
func (c *Config) Summary() map[string]bool {
	out := make(map[string]bool, len(llm.AllProviders())+2)
	for id, pc := range c.Providers.LLM() {
		out[string(id)] = pc.Configured(id)
	}
	out["embedding:ollama"] = strings.TrimSpace(c.Embeddings.URL) != ""
	out["embedding:openai"] = strings.TrimSpace(c.Embeddings.OpenAIAPIKey) != ""
	return out
}
