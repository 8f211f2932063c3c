package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Cleanup(func() { viper.Reset() })
}

func TestLoadConfig_ValidTOMLFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lcf.toml")

	toml := `
region = "us-east-1"
data_dir = "/var/lib/lcf"

[catalog]
host = "127.0.0.1:8447"
data_dir = "/var/lib/lcf"
auth_key = "LCFATESTKEY123456789"
tlscert = "/var/lib/lcf/server.pem"
tlskey = "/var/lib/lcf/server.key"

[catalog.s3]
host = "https://127.0.0.1:8443"
region = "us-east-1"
access_key = "AK"
secret_key = "SK"

[nats]
host = "nats://127.0.0.1:4222"

[nats.acl]
token = "nats_testtoken"

[stubgen]
data_dir = "/var/lib/lcf"
out_dir = "/var/lib/lcf/sdk"

[fetcher]
catalog_url = "https://127.0.0.1:8447"
profile = "lcf"
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "/var/lib/lcf", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8447", cfg.Catalog.Host)
	assert.Equal(t, "LCFATESTKEY123456789", cfg.Catalog.AuthKey)
	assert.Equal(t, "/var/lib/lcf/server.pem", cfg.Catalog.TLSCert)
	assert.Equal(t, "https://127.0.0.1:8443", cfg.Catalog.S3.Host)
	assert.Equal(t, "AK", cfg.Catalog.S3.AccessKey)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.Host)
	assert.Equal(t, "nats_testtoken", cfg.NATS.ACL.Token)
	assert.Equal(t, "/var/lib/lcf/sdk", cfg.Stubgen.OutDir)
	assert.Equal(t, "https://127.0.0.1:8447", cfg.Fetcher.CatalogURL)
	assert.Equal(t, "lcf", cfg.Fetcher.Profile)
}

func TestLoadConfig_EmptyConfigPath(t *testing.T) {
	resetViper(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	// All zero values
	assert.Empty(t, cfg.Region)
	assert.Empty(t, cfg.Catalog.Host)
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	resetViper(t)
	cfg, err := LoadConfig("/tmp/nonexistent-lcf-config-test-12345.toml")
	// Not an error - falls through to defaults
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestLoadConfig_MalformedTOML(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not valid toml {{{"), 0600))

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(path, []byte(`region = "ap-southeast-2"
debug = true
`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
	assert.True(t, cfg.Debug)
	assert.Empty(t, cfg.Catalog.AuthKey)
	assert.Empty(t, cfg.NATS.Host)
}

func TestLoadConfig_EnvVarOverrideWithFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lcf.toml")

	// Viper's AutomaticEnv only works for keys Viper already knows about
	// (from a config file or explicit BindEnv). Provide a minimal config
	// so Viper registers the "region" key, then override via env.
	require.NoError(t, os.WriteFile(path, []byte(`region = "file-region"
`), 0600))

	t.Setenv("LCF_REGION", "env-region")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	// Env vars override file values for keys Viper knows about
	assert.Equal(t, "env-region", cfg.Region)
}
