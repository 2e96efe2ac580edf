package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sant0-9/surasura/internal/errors"
)

type Config struct {
	Provider string `yaml:"provider" json:"provider" validate:"required,oneof=gemini openai anthropic ollama"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Model    string `yaml:"model" json:"model"`
	BaseURL  string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Templates TemplatesConfig `yaml:"templates" json:"templates"`
	Source    SourceConfig    `yaml:"source" json:"source"`
	Report    ReportConfig    `yaml:"report" json:"report"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

type LLMConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=1"`
	Temperature    float64 `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `yaml:"max_tokens" json:"max_tokens" validate:"gte=1"`
}

// TemplatesConfig selects the stage template set. Dir, when set, is searched
// for <set>/*.md before the built-in sets.
type TemplatesConfig struct {
	Set      string `yaml:"set" json:"set" validate:"required"`
	Dir      string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Language string `yaml:"language" json:"language"`
}

type SourceConfig struct {
	FetchTimeoutSeconds int   `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds" validate:"gte=1"`
	MaxPDFBytes         int64 `yaml:"max_pdf_bytes" json:"max_pdf_bytes" validate:"gte=1024"`
}

type ReportConfig struct {
	Title     string `yaml:"title" json:"title"`
	Footer    string `yaml:"footer,omitempty" json:"footer,omitempty"`
	FontPath  string `yaml:"font_path,omitempty" json:"font_path,omitempty"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr" json:"addr" validate:"required"`
	RunTTLMinutes int    `yaml:"run_ttl_minutes" json:"run_ttl_minutes" validate:"gte=1"`
	BodyLimitMB   int    `yaml:"body_limit_mb" json:"body_limit_mb" validate:"gte=1"`
}

type LogConfig struct {
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: "gemini",
		Model:    "gemini-1.5-pro-latest",
		LLM: LLMConfig{
			TimeoutSeconds: 120,
			Temperature:    0.4,
			MaxTokens:      4096,
		},
		Templates: TemplatesConfig{
			Set:      "sludge",
			Language: "the same language as the document",
		},
		Source: SourceConfig{
			FetchTimeoutSeconds: 30,
			MaxPDFBytes:         20 * 1024 * 1024,
		},
		Report: ReportConfig{
			Title:     "Surasura Diagnosis",
			Footer:    "Powered by StepSpin",
			OutputDir: ".",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RunTTLMinutes: 60,
			BodyLimitMB:   20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir honours SURASURA_CONFIG_DIR so tests and containers can relocate it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SURASURA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "surasura"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads .env, the config file (if any) and environment overrides, in
// that order of increasing precedence.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path. A missing file yields
// the defaults.
func LoadFrom(path string) (*Config, error) {
	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "config: read .env")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()
	return cfg, nil
}

// LoadFile reads only the config file over the defaults, without .env or
// environment overrides. Use it to edit and Save the file so credentials
// from the environment are never written out.
func LoadFile() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg.applyProviderDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SURASURA_PROVIDER"); v != "" && v != c.Provider {
		c.resetProvider(v)
	}
	c.applyProviderEnv()
	if v := os.Getenv("SURASURA_TEMPLATE_SET"); v != "" {
		c.Templates.Set = v
	}
	if v := os.Getenv("SURASURA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v, err := strconv.Atoi(os.Getenv("SURASURA_LLM_TIMEOUT_SECONDS")); err == nil {
		c.LLM.TimeoutSeconds = v
	}
}

// applyProviderEnv overlays the model, base URL and credential variables.
func (c *Config) applyProviderEnv() {
	if v := os.Getenv("SURASURA_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("SURASURA_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SURASURA_API_KEY"); v != "" {
		c.APIKey = v
	} else if c.APIKey == "" {
		if p := GetProvider(c.Provider); p != nil && p.EnvKey != "" {
			c.APIKey = os.Getenv(p.EnvKey)
		}
	}
}

func (c *Config) applyProviderDefaults() {
	p := GetProvider(c.Provider)
	if p == nil {
		return
	}
	if c.Model == "" {
		c.Model = p.DefaultModel
	}
}

func (c *Config) resetProvider(id string) {
	c.Provider = id
	c.Model = ""
	c.BaseURL = ""
	c.APIKey = ""
}

// SetProvider switches provider and resets model, base URL and key to the
// provider defaults. It never reads the environment, so a config edited
// with it can be saved safely.
func (c *Config) SetProvider(id string) {
	if id == c.Provider {
		return
	}
	c.resetProvider(id)
	c.applyProviderDefaults()
}

// UseProvider is SetProvider for a loaded runtime config: the provider's
// model, base URL and credential variables are applied again.
func (c *Config) UseProvider(id string) {
	if id == c.Provider {
		return
	}
	c.resetProvider(id)
	c.applyProviderEnv()
	c.applyProviderDefaults()
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// RequireCredential fails with ErrMissingCredential when the selected
// provider needs a key and none was configured.
func (c *Config) RequireCredential() error {
	p := GetProvider(c.Provider)
	if p == nil || !p.NeedsAPIKey || c.APIKey != "" {
		return nil
	}
	path, _ := ConfigPath()
	err := errors.Wrapf(errors.ErrMissingCredential, "provider %s", p.ID)
	return errors.WithHintf(err, "set %s (or SURASURA_API_KEY) in the environment or .env, or api_key in %s", p.EnvKey, path)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.APIKey != "" {
		cp.APIKey = "********"
	}
	return &cp
}

func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
