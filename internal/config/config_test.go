package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
list_url: https://x.com/i/lists/123456
browser:
  auth_token: tok
summarizer:
  api_key: key
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, 7, cfg.WindowDays)
	require.Equal(t, 2, cfg.ThreadGap)
	require.Equal(t, "0 8 * * 1", cfg.Schedule)
	require.Equal(t, "output", cfg.OutputDir)
	require.Equal(t, 2, cfg.Collector.Lookahead)
	require.Equal(t, 100, cfg.Collector.HousekeepEvery)
	require.Equal(t, 30, cfg.Collector.MaxConsecutiveErrors)
	require.Equal(t, "gemini-1.5-flash", cfg.Summarizer.Model)
	require.Equal(t, "v12", cfg.Summarizer.PromptVersion)
	require.Equal(t, []string{"stdout"}, cfg.Publisher.Types)
	require.Equal(t, 587, cfg.Publisher.Email.SMTPPort)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-from-env")

	cfg, err := Load(writeConfig(t, `
list_url: https://x.com/i/lists/123456
browser:
  auth_token: tok
summarizer:
  api_key: ${TEST_GEMINI_KEY}
`))
	require.NoError(t, err)
	require.Equal(t, "secret-from-env", cfg.Summarizer.APIKey)
}

func TestLoadLeavesUnsetEnvVarsVerbatim(t *testing.T) {
	require.Equal(t, "${DEFINITELY_NOT_SET_XYZ}", expandEnvVars("${DEFINITELY_NOT_SET_XYZ}"))
}

func TestLoadRequiresListURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
browser:
  auth_token: tok
summarizer:
  api_key: key
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "list_url")
}

func TestLoadRequiresCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
list_url: https://x.com/i/lists/123456
browser:
  username: user
summarizer:
  api_key: key
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "credentials")
}

func TestLoadRejectsUnknownPublisherType(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
publisher:
  types: [carrier-pigeon]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "carrier-pigeon")
}

func TestLoadEmailPublisherNeedsHostAndRecipients(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
publisher:
  types: [email]
  email:
    from: news@example.com
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp_host")

	_, err = Load(writeConfig(t, minimalConfig+`
publisher:
  types: [email]
  email:
    smtp_host: smtp.example.com
    from: news@example.com
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "publisher.email.to or database.dsn")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
