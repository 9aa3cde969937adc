package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
)

// isolate clears every variable Load reads and points it at a missing settings file
func isolate(t *testing.T) string {
	t.Helper()
	for _, name := range append(credentialEnv, "MIXPANEL_API_URL", "MCP_HTTP_PORT") {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	t.Setenv("MIXPANEL_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	return dir
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SERVICE_ACCOUNT_USER_NAME", "svc")
	t.Setenv("SERVICE_ACCOUNT_PASSWORD", "pw")
	t.Setenv("DEFAULT_PROJECT_ID", "123")
	t.Setenv("MIXPANEL_REGION", "eu")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, mixpanel.Credentials{Username: "svc", Password: "pw", ProjectID: "123", Region: "eu"}, cfg.Credentials)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Zero(t, cfg.Timeout)
	assert.Empty(t, cfg.BaseURL)
}

func TestLoadFallsBackToArgs(t *testing.T) {
	isolate(t)
	t.Setenv("SERVICE_ACCOUNT_USER_NAME", "from-env")

	cfg, err := Load([]string{"from-args", "pw", "7"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Credentials.Username)
	assert.Equal(t, "pw", cfg.Credentials.Password)
	assert.Equal(t, "7", cfg.Credentials.ProjectID)
	assert.Equal(t, "us", cfg.Credentials.Region)
}

func TestLoadMissingCredentials(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"user"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_ACCOUNT_PASSWORD")
	assert.Contains(t, err.Error(), "DEFAULT_PROJECT_ID")
	assert.NotContains(t, err.Error(), "SERVICE_ACCOUNT_USER_NAME")
}

func TestLoadSettingsFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mixpanel:
  timeout: 45s
  base_url: http://localhost:9999/api/query
server:
  port: 8088
`), 0o600))
	t.Setenv("MIXPANEL_CONFIG_FILE", path)

	cfg, err := Load([]string{"u", "p", "1"})
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "http://localhost:9999/api/query", cfg.BaseURL)
	assert.Equal(t, 8088, cfg.HTTPPort)

	client := mixpanel.NewClient(cfg.Credentials, cfg.ClientOptions()...)
	assert.Equal(t, "http://localhost:9999/api/query", client.BaseURL())
}

func TestLoadEnvOverridesSettings(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mixpanel:\n  base_url: http://file\nserver:\n  port: 8088\n"), 0o600))
	t.Setenv("MIXPANEL_CONFIG_FILE", path)
	t.Setenv("MIXPANEL_API_URL", "http://env")
	t.Setenv("MCP_HTTP_PORT", "9090")

	cfg, err := Load([]string{"u", "p", "1"})
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.BaseURL)
	assert.Equal(t, 9090, cfg.HTTPPort)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		isolate(t)
		t.Setenv("MCP_HTTP_PORT", "http")
		_, err := Load([]string{"u", "p", "1"})
		assert.ErrorContains(t, err, "MCP_HTTP_PORT")
	})

	t.Run("timeout", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mixpanel:\n  timeout: soon\n"), 0o600))
		t.Setenv("MIXPANEL_CONFIG_FILE", path)
		_, err := Load([]string{"u", "p", "1"})
		assert.ErrorContains(t, err, "mixpanel.timeout")
	})

	t.Run("yaml", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mixpanel: [\n"), 0o600))
		t.Setenv("MIXPANEL_CONFIG_FILE", path)
		_, err := Load([]string{"u", "p", "1"})
		assert.ErrorContains(t, err, "parsing settings")
	})
}

func TestClientOptionsDefaults(t *testing.T) {
	cfg := &Config{Credentials: mixpanel.Credentials{Region: "eu"}}
	client := mixpanel.NewClient(cfg.Credentials, cfg.ClientOptions()...)
	assert.Equal(t, mixpanel.EUBaseURL, client.BaseURL())
}

type fakeSecrets struct {
	output *secretsmanager.GetSecretValueOutput
	err    error
	input  *secretsmanager.GetSecretValueInput
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.input = params
	return f.output, f.err
}

func TestApplySecret(t *testing.T) {
	t.Setenv("SERVICE_ACCOUNT_USER_NAME", "already-set")
	t.Setenv("DEFAULT_PROJECT_ID", "")

	fake := &fakeSecrets{output: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"SERVICE_ACCOUNT_USER_NAME":"from-secret","DEFAULT_PROJECT_ID":42}`),
	}}

	applied, err := applySecret(context.Background(), fake, "mixpanel/prod", "AWSCURRENT", false)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, "already-set", os.Getenv("SERVICE_ACCOUNT_USER_NAME"))
	assert.Equal(t, "42", os.Getenv("DEFAULT_PROJECT_ID"))
	assert.Equal(t, "mixpanel/prod", aws.ToString(fake.input.SecretId))
	assert.Equal(t, "AWSCURRENT", aws.ToString(fake.input.VersionStage))

	applied, err = applySecret(context.Background(), fake, "mixpanel/prod", "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, "from-secret", os.Getenv("SERVICE_ACCOUNT_USER_NAME"))
	assert.Nil(t, fake.input.VersionStage)
}

func TestApplySecretErrors(t *testing.T) {
	_, err := applySecret(context.Background(), &fakeSecrets{err: errors.New("denied")}, "s", "", false)
	assert.ErrorContains(t, err, "denied")

	_, err = applySecret(context.Background(), &fakeSecrets{output: &secretsmanager.GetSecretValueOutput{}}, "s", "", false)
	assert.ErrorContains(t, err, "no payload")

	_, err = applySecret(context.Background(), &fakeSecrets{output: &secretsmanager.GetSecretValueOutput{
		SecretBinary: []byte("not json"),
	}}, "s", "", false)
	assert.ErrorContains(t, err, "parsing secret")
}
