package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/surasura/internal/errors"
)

// isolate points the config dir at a temp dir and clears credential env vars
// so the developer's real environment cannot leak into assertions.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SURASURA_CONFIG_DIR", dir)
	for _, key := range []string{
		"SURASURA_PROVIDER", "SURASURA_MODEL", "SURASURA_BASE_URL", "SURASURA_API_KEY",
		"SURASURA_TEMPLATE_SET", "SURASURA_LOG_LEVEL", "SURASURA_LLM_TIMEOUT_SECONDS",
		"GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-1.5-pro-latest", cfg.Model)
	assert.Equal(t, "sludge", cfg.Templates.Set)
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
model: gpt-4o
templates:
  set: east
llm:
  timeout_seconds: 30
`), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SURASURA_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "east", cfg.Templates.Set)
	assert.Equal(t, 30, cfg.LLM.TimeoutSeconds)
	// untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestDotEnvSuppliesCredential(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("GOOGLE_API_KEY"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GOOGLE_API_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.NoError(t, cfg.RequireCredential())
}

func TestRequireCredential(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.RequireCredential()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingCredential))
	assert.Contains(t, errors.FlattenHints(err), "GOOGLE_API_KEY")

	cfg.SetProvider("ollama")
	assert.NoError(t, cfg.RequireCredential())
	assert.Equal(t, "llama3.1:8b", cfg.Model)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "watson"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Log.Level = "chatty"
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.Templates.Set = "east"
	require.NoError(t, cfg.Save())
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "east", loaded.Templates.Set)
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	assert.Equal(t, "********", cfg.Redacted().APIKey)
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("SURASURA_MODEL", "gemini-2.0-flash")

	cfg, err := LoadFile()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "gemini-1.5-pro-latest", cfg.Model)

	cfg.Templates.Set = "east"
	require.NoError(t, cfg.Save())

	again, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "east", again.Templates.Set)
	assert.Empty(t, again.APIKey)
}

func TestSetProviderIgnoresEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("SURASURA_BASE_URL", "http://proxy.example")

	cfg, err := LoadFile()
	require.NoError(t, err)
	cfg.SetProvider("openai")

	assert.Equal(t, "openai", cfg.Provider)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.BaseURL)
	assert.NotEmpty(t, cfg.Model)
}

func TestUseProviderReadsEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load()
	require.NoError(t, err)
	cfg.UseProvider("openai")

	assert.Equal(t, "sk-from-env", cfg.APIKey)
	assert.NoError(t, cfg.RequireCredential())
}
