package admin

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Key / Token generation ---

func TestGenerateAuthKey_Format(t *testing.T) {
	key := GenerateAuthKey()
	assert.Len(t, key, 20)
	assert.True(t, strings.HasPrefix(key, "LCFA"))
	for _, c := range key[4:] {
		assert.True(t, (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'),
			"unexpected character %c in auth key suffix", c)
	}
}

func TestGenerateAuthKey_Uniqueness(t *testing.T) {
	assert.NotEqual(t, GenerateAuthKey(), GenerateAuthKey())
}

func TestGenerateNATSToken_Format(t *testing.T) {
	token := GenerateNATSToken()
	assert.True(t, strings.HasPrefix(token, "nats_"))
	assert.Len(t, token, 37) // 5 prefix + 32 random
	// URL-safe base64: no '+' or '/'
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
}

func TestGenerateNATSToken_Uniqueness(t *testing.T) {
	assert.NotEqual(t, GenerateNATSToken(), GenerateNATSToken())
}

// --- Config file generation ---

func TestGenerateConfigFile_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.conf")

	tmpl := "region = {{.Region}}\ndata_dir = {{.DataDir}}"
	settings := ConfigSettings{Region: "us-east-1", DataDir: "/srv/lcf"}

	err := GenerateConfigFile(path, tmpl, settings)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "region = us-east-1")
	assert.Contains(t, string(data), "data_dir = /srv/lcf")

	info, _ := os.Stat(path)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestGenerateConfigFile_InvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.conf")
	err := GenerateConfigFile(path, "{{.Unclosed", ConfigSettings{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestGenerateConfigFile_InvalidPath(t *testing.T) {
	err := GenerateConfigFile("/nonexistent/dir/file.conf", "ok", ConfigSettings{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config file")
}

func TestGenerateConfigFile_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overwrite.conf")

	require.NoError(t, GenerateConfigFile(path, "old={{.Region}}", ConfigSettings{Region: "old"}))
	require.NoError(t, GenerateConfigFile(path, "new={{.Region}}", ConfigSettings{Region: "new"}))

	data, _ := os.ReadFile(path)
	assert.Contains(t, string(data), "new=new")
	assert.NotContains(t, string(data), "old")
}

func TestGenerateConfigFiles_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	configs := []ConfigFile{
		{Name: "a", Path: filepath.Join(dir, "a.conf"), Template: "a={{.Region}}"},
		{Name: "b", Path: filepath.Join(dir, "b.conf"), Template: "b={{.BindIP}}"},
	}
	err := GenerateConfigFiles(configs, ConfigSettings{Region: "us-west-2", BindIP: "127.0.0.1"})
	require.NoError(t, err)

	for _, cfg := range configs {
		assert.True(t, FileExists(cfg.Path))
	}
}

func TestGenerateConfigFiles_StopsOnFirstError(t *testing.T) {
	dir := t.TempDir()
	configs := []ConfigFile{
		{Name: "ok", Path: filepath.Join(dir, "ok.conf"), Template: "ok"},
		{Name: "bad", Path: "/nonexistent/dir/bad.conf", Template: "bad"},
		{Name: "never", Path: filepath.Join(dir, "never.conf"), Template: "never"},
	}
	err := GenerateConfigFiles(configs, ConfigSettings{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.False(t, FileExists(filepath.Join(dir, "never.conf")))
}

// --- FileExists ---

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(existing, []byte("hi"), 0644))

	assert.True(t, FileExists(existing))
	assert.False(t, FileExists(filepath.Join(dir, "nope.txt")))
	assert.True(t, FileExists(dir)) // directory also returns true
}

// --- UpdateINIFile ---

func TestUpdateINIFile_CreateNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	err := UpdateINIFile(path, "lcf", map[string]string{
		"auth_key": "LCFATEST",
		"region":   "us-east-1",
	})
	require.NoError(t, err)

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, "[lcf]")
	assert.Contains(t, content, "LCFATEST")
	assert.Contains(t, content, "us-east-1")
}

func TestUpdateINIFile_UpdateExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	// Create with initial value
	require.NoError(t, UpdateINIFile(path, "lcf", map[string]string{"key": "old"}))
	// Update
	require.NoError(t, UpdateINIFile(path, "lcf", map[string]string{"key": "new"}))

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, "new")
}

func TestUpdateINIFile_AddNewSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	require.NoError(t, UpdateINIFile(path, "default", map[string]string{"key": "default-val"}))
	require.NoError(t, UpdateINIFile(path, "lcf", map[string]string{"key": "lcf-val"}))

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, "[default]")
	assert.Contains(t, content, "[lcf]")
	assert.Contains(t, content, "default-val")
	assert.Contains(t, content, "lcf-val")
}

// --- Credentials ---

func TestSetupCredentials_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	err := SetupCredentials("LCFATEST123", "us-east-1", "https://127.0.0.1:8447")
	require.NoError(t, err)

	credData, _ := os.ReadFile(filepath.Join(dir, ".lcf", "credentials"))
	content := string(credData)

	assert.Contains(t, content, "[lcf]")
	assert.Contains(t, content, "LCFATEST123")
	assert.Contains(t, content, "us-east-1")
	assert.Contains(t, content, "https://127.0.0.1:8447")
}

func TestSetupCredentials_PreservesExistingProfiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	lcfDir := filepath.Join(dir, ".lcf")
	require.NoError(t, os.MkdirAll(lcfDir, 0700))
	require.NoError(t, UpdateINIFile(filepath.Join(lcfDir, "credentials"), "staging", map[string]string{
		"auth_key": "EXISTING_KEY",
	}))

	err := SetupCredentials("NEWKEY", "us-west-2", "https://catalog.internal:8447")
	require.NoError(t, err)

	data, _ := os.ReadFile(filepath.Join(lcfDir, "credentials"))
	content := string(data)
	assert.Contains(t, content, "EXISTING_KEY")
	assert.Contains(t, content, "NEWKEY")
}

func TestLoadCredentials_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	require.NoError(t, UpdateINIFile(path, "lcf", map[string]string{
		"auth_key":    "LCFAROUNDTRIP",
		"region":      "eu-west-1",
		"catalog_url": "https://10.0.0.5:8447",
	}))

	creds, err := LoadCredentials(path, "lcf")
	require.NoError(t, err)
	assert.Equal(t, "LCFAROUNDTRIP", creds.AuthKey)
	assert.Equal(t, "eu-west-1", creds.Region)
	assert.Equal(t, "https://10.0.0.5:8447", creds.CatalogURL)
}

func TestLoadCredentials_MissingProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")

	require.NoError(t, UpdateINIFile(path, "lcf", map[string]string{"auth_key": "x"}))

	_, err := LoadCredentials(path, "ghost")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "profile ghost not found")
}

func TestLoadCredentials_MissingFile(t *testing.T) {
	_, err := LoadCredentials("/nonexistent/credentials", "lcf")
	assert.Error(t, err)
}

// --- Certificate generation ---

func TestGenerateCACert_CreatesValidCA(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.pem")
	keyPath := filepath.Join(dir, "ca.key")

	err := GenerateCACert(certPath, keyPath)
	require.NoError(t, err)

	// Parse certificate
	certPEM, _ := os.ReadFile(certPath)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)

	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.True(t, cert.IsCA)
	assert.Equal(t, "LowCodeFusion Local CA", cert.Subject.CommonName)
	assert.NotZero(t, cert.KeyUsage&x509.KeyUsageCertSign)

	// Parse key
	keyPEM, _ := os.ReadFile(keyPath)
	keyBlock, _ := pem.Decode(keyPEM)
	require.NotNil(t, keyBlock)
	assert.Equal(t, "PRIVATE KEY", keyBlock.Type)

	// Verify key file permissions
	info, _ := os.Stat(keyPath)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// TestGenerateSignedCert uses subtests sharing a single CA to avoid repeated 4096-bit key generation.
func TestGenerateSignedCert(t *testing.T) {
	t.Parallel()
	caDir := t.TempDir()
	caCertPath := filepath.Join(caDir, "ca.pem")
	caKeyPath := filepath.Join(caDir, "ca.key")
	require.NoError(t, GenerateCACert(caCertPath, caKeyPath))

	t.Run("CreatesValidCert", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		certPath := filepath.Join(dir, "server.pem")
		keyPath := filepath.Join(dir, "server.key")

		require.NoError(t, GenerateSignedCert(certPath, keyPath, caCertPath, caKeyPath))

		certPEM, _ := os.ReadFile(certPath)
		block, _ := pem.Decode(certPEM)
		require.NotNil(t, block)

		cert, err := x509.ParseCertificate(block.Bytes)
		require.NoError(t, err)
		assert.False(t, cert.IsCA)
		assert.Equal(t, "localhost", cert.Subject.CommonName)
		assert.Contains(t, cert.DNSNames, "localhost")

		hasLoopback := false
		for _, ip := range cert.IPAddresses {
			if ip.Equal(net.ParseIP("127.0.0.1")) {
				hasLoopback = true
			}
		}
		assert.True(t, hasLoopback)

		// Verify against CA
		caCertPEM, _ := os.ReadFile(caCertPath)
		caBlock, _ := pem.Decode(caCertPEM)
		caCert, _ := x509.ParseCertificate(caBlock.Bytes)
		pool := x509.NewCertPool()
		pool.AddCert(caCert)
		_, err = cert.Verify(x509.VerifyOptions{Roots: pool})
		assert.NoError(t, err)

		info, _ := os.Stat(keyPath)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("ExtraIPs", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		certPath := filepath.Join(dir, "server.pem")
		keyPath := filepath.Join(dir, "server.key")

		require.NoError(t, GenerateSignedCert(certPath, keyPath, caCertPath, caKeyPath, "192.168.1.100"))

		certPEM, _ := os.ReadFile(certPath)
		block, _ := pem.Decode(certPEM)
		cert, _ := x509.ParseCertificate(block.Bytes)

		hasExtraIP := false
		for _, ip := range cert.IPAddresses {
			if ip.Equal(net.ParseIP("192.168.1.100")) {
				hasExtraIP = true
			}
		}
		assert.True(t, hasExtraIP, "cert should contain extra IP 192.168.1.100")
	})

	t.Run("SkipsDuplicateAndSpecialIPs", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		certPath := filepath.Join(dir, "server.pem")
		keyPath := filepath.Join(dir, "server.key")

		require.NoError(t, GenerateSignedCert(certPath, keyPath, caCertPath, caKeyPath, "127.0.0.1", "::1", "0.0.0.0", ""))

		certPEM, _ := os.ReadFile(certPath)
		block, _ := pem.Decode(certPEM)
		cert, _ := x509.ParseCertificate(block.Bytes)

		assert.Len(t, cert.IPAddresses, 2)
	})

	t.Run("InvalidCACert", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		badCACert := filepath.Join(dir, "bad-ca.pem")
		require.NoError(t, os.WriteFile(badCACert, []byte("not-a-cert"), 0600))

		err := GenerateSignedCert(filepath.Join(dir, "s.pem"), filepath.Join(dir, "s.key"), badCACert, caKeyPath)
		assert.Error(t, err)
	})
}

// --- Certificate orchestrator ---

// TestGenerateCertificatesIfNeeded uses subtests to share the initial generation.
func TestGenerateCertificatesIfNeeded(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// First call generates all certs
	caCertPath := GenerateCertificatesIfNeeded(dir, false, "")
	assert.Equal(t, filepath.Join(dir, "ca.pem"), caCertPath)
	assert.True(t, FileExists(filepath.Join(dir, "ca.pem")))
	assert.True(t, FileExists(filepath.Join(dir, "ca.key")))
	assert.True(t, FileExists(filepath.Join(dir, "server.pem")))
	assert.True(t, FileExists(filepath.Join(dir, "server.key")))

	t.Run("SkipsWhenAllExist", func(t *testing.T) {
		caInfo, _ := os.Stat(filepath.Join(dir, "ca.pem"))
		origModTime := caInfo.ModTime()

		GenerateCertificatesIfNeeded(dir, false, "")
		caInfo2, _ := os.Stat(filepath.Join(dir, "ca.pem"))
		assert.Equal(t, origModTime, caInfo2.ModTime())
	})

	t.Run("ForceRegenerates", func(t *testing.T) {
		origCA, _ := os.ReadFile(filepath.Join(dir, "ca.pem"))

		GenerateCertificatesIfNeeded(dir, true, "")
		newCA, _ := os.ReadFile(filepath.Join(dir, "ca.pem"))
		assert.NotEqual(t, origCA, newCA)
	})
}

// --- Directory creation ---

func TestCreateServiceDirectories_CreatesAll(t *testing.T) {
	dir := t.TempDir()
	CreateServiceDirectories(dir)

	expected := []string{"packages", "flows", "sdk", "state", "logs", "nats"}
	for _, name := range expected {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		assert.NoError(t, err, "directory %s should exist", name)
		if err == nil {
			assert.True(t, info.IsDir())
		}
	}
}

func TestCreateServiceDirectories_Idempotent(t *testing.T) {
	dir := t.TempDir()
	CreateServiceDirectories(dir)
	// Should not error on second call
	CreateServiceDirectories(dir)

	info, err := os.Stat(filepath.Join(dir, "packages"))
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

// --- ParseAuthKeyFromConfig ---

func TestParseAuthKeyFromConfig(t *testing.T) {
	tomlContent := `
region = "us-east-1"

[catalog]
host = "127.0.0.1:8447"
auth_key = "LCFAPARSEDFROMCFG"
`
	assert.Equal(t, "LCFAPARSEDFROMCFG", ParseAuthKeyFromConfig(tomlContent))
	assert.Equal(t, "", ParseAuthKeyFromConfig(`region = "us-east-1"`))
	assert.Equal(t, "", ParseAuthKeyFromConfig("invalid toml {{{"))
	assert.Equal(t, "", ParseAuthKeyFromConfig(""))
}

// --- Integration: Full config generation flow ---

func TestGenerateConfigFile_LcfTomlTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lcf.toml")

	tmpl := `region = "{{.Region}}"
data_dir = "{{.DataDir}}"

[catalog]
host = "{{.BindIP}}:{{.Port}}"
auth_key = "{{.AuthKey}}"

[nats.acl]
token = "{{.NatsToken}}"
`

	settings := ConfigSettings{
		Region:    "us-east-1",
		DataDir:   "/srv/lcf",
		BindIP:    "127.0.0.1",
		Port:      "8447",
		AuthKey:   "LCFATEST",
		NatsToken: "nats_testtoken",
	}

	require.NoError(t, GenerateConfigFile(path, tmpl, settings))

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, `region = "us-east-1"`)
	assert.Contains(t, content, `host = "127.0.0.1:8447"`)
	assert.Contains(t, content, fmt.Sprintf(`auth_key = "%s"`, settings.AuthKey))

	// The generated file parses back to the same auth key
	assert.Equal(t, "LCFATEST", ParseAuthKeyFromConfig(content))
}
