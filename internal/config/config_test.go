package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envOf turns a map into a lookup function so tests never touch the real
// process environment.
func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foodgram.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.False(t, cfg.S3.Enabled())
	assert.False(t, cfg.GitHub.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := load("", envOf(map[string]string{
		"PORT":                  "9090",
		"DB_PATH":               "/tmp/x.db",
		"JWT_SECRET":            "0123456789abcdef",
		"SECURE_COOKIES":        "true",
		"S3_ENDPOINT":           "minio:9000",
		"S3_ACCESS_KEY":         "ak",
		"S3_SECRET_KEY":         "sk",
		"S3_BUCKET":             "recipes",
		"LOG_LEVEL":             "DEBUG",
		"LOGIN_RATE_PER_MINUTE": "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "recipes", cfg.S3.Bucket)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.LoginRatePerMinute)
	assert.NoError(t, cfg.RequireServe())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeYAML(t, `
port: 7000
media_url: /img/
github:
  client_id: abc
  client_secret: shh
`)

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "/img/", cfg.MediaURL)
	assert.Equal(t, "data/foodgram.db", cfg.DBPath, "keys missing from the file keep their default")
	assert.True(t, cfg.GitHub.Enabled())
	assert.Equal(t, "http://localhost:7000/api/auth/github/callback", cfg.GitHub.CallbackURL)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeYAML(t, "port: 7000\n")

	cfg, err := load("", envOf(map[string]string{EnvConfigPath: path, "PORT": "7001"}))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"port not a number", "", map[string]string{"PORT": "eighty"}},
		{"port out of range", "", map[string]string{"PORT": "70000"}},
		{"unknown log level", "", map[string]string{"LOG_LEVEL": "verbose"}},
		{"unknown log format", "", map[string]string{"LOG_FORMAT": "xml"}},
		{"media url not absolute", "", map[string]string{"MEDIA_URL": "media/"}},
		{"s3 endpoint without bucket", "", map[string]string{"S3_ENDPOINT": "minio:9000", "S3_ACCESS_KEY": "a", "S3_SECRET_KEY": "b"}},
		{"github id without secret", "", map[string]string{"GITHUB_CLIENT_ID": "abc"}},
		{"zero login rate", "", map[string]string{"LOGIN_RATE_PER_MINUTE": "0"}},
		{"bad boolean", "", map[string]string{"SECURE_COOKIES": "sometimes"}},
		{"malformed yaml", "port: [\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeYAML(t, tt.file)
			}
			_, err := load(path, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envOf(nil))
	assert.ErrorContains(t, err, "reading")
}

func TestRequireServe(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.RequireServe())

	cfg.JWTSecret = "short"
	assert.Error(t, cfg.RequireServe())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
