package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCloudConfig struct {
	Log   LogConfig    `yaml:"log"`
	Cloud testCloud    `yaml:"cloud"`
	Run   *testRunOpts `yaml:"run"`
}

type testCloud struct {
	AuthURL  string   `yaml:"auth_url" env:"TEST_OS_AUTH_URL"`
	Region   string   `yaml:"region" env:"TEST_OS_REGION_NAME" default:"eu-de"`
	Insecure bool     `yaml:"insecure" env:"TEST_OS_INSECURE" default:"no"`
	Services []string `yaml:"services" env:"TEST_OS_SERVICES"`
}

type testRunOpts struct {
	Timeout time.Duration `yaml:"timeout" env:"TEST_TIMEOUT" default:"5m"`
	Retries int           `yaml:"retries" env:"TEST_RETRIES" default:"2"`
}

func TestConfigLoader_Defaults(t *testing.T) {
	cfg := &testCloudConfig{}
	require.NoError(t, NewConfigLoader(LoaderConfig{}).Load(cfg))

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Debug)
	assert.Equal(t, "eu-de", cfg.Cloud.Region)
	assert.False(t, cfg.Cloud.Insecure)
	require.NotNil(t, cfg.Run)
	assert.Equal(t, 5*time.Minute, cfg.Run.Timeout)
	assert.Equal(t, 2, cfg.Run.Retries)
}

func TestConfigLoader_YAMLOverridesDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "functional.yaml")
	content := `
log:
  level: debug
cloud:
  auth_url: https://iam.example.com/v3
  insecure: true
  services: [cts, css]
run:
  retries: 5
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg := &testCloudConfig{}
	require.NoError(t, NewConfigLoader(LoaderConfig{ConfigFile: configFile}).Load(cfg))

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://iam.example.com/v3", cfg.Cloud.AuthURL)
	assert.Equal(t, "eu-de", cfg.Cloud.Region)
	assert.True(t, cfg.Cloud.Insecure)
	assert.Equal(t, []string{"cts", "css"}, cfg.Cloud.Services)
	assert.Equal(t, 5, cfg.Run.Retries)
	assert.Equal(t, 5*time.Minute, cfg.Run.Timeout)
}

func TestConfigLoader_EnvOverridesYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "functional.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("cloud:\n  region: eu-nl\n"), 0644))

	t.Setenv("TEST_OS_REGION_NAME", "eu-ch2")
	t.Setenv("TEST_OS_INSECURE", "Y")
	t.Setenv("TEST_OS_SERVICES", "cts, css,")
	t.Setenv("TEST_TIMEOUT", "90s")

	cfg := &testCloudConfig{}
	require.NoError(t, NewConfigLoader(LoaderConfig{ConfigFile: configFile}).Load(cfg))

	assert.Equal(t, "eu-ch2", cfg.Cloud.Region)
	assert.True(t, cfg.Cloud.Insecure)
	assert.Equal(t, []string{"cts", "css"}, cfg.Cloud.Services)
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
}

func TestConfigLoader_EnvPrefixWins(t *testing.T) {
	t.Setenv("TEST_OS_REGION_NAME", "eu-nl")
	t.Setenv("FUNC_TEST_OS_REGION_NAME", "eu-de")

	cfg := &testCloudConfig{}
	require.NoError(t, NewConfigLoader(LoaderConfig{EnvPrefix: "func"}).Load(cfg))

	assert.Equal(t, "eu-de", cfg.Cloud.Region)
}

func TestConfigLoader_EnvironmentFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "functional.env")
	content := `
# cloud credentials
export TEST_OS_AUTH_URL="https://iam.example.com/v3"
TEST_RETRIES='7'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))
	t.Cleanup(func() {
		os.Unsetenv("TEST_OS_AUTH_URL")
		os.Unsetenv("TEST_RETRIES")
	})

	cfg := &testCloudConfig{}
	require.NoError(t, NewConfigLoader(LoaderConfig{EnvironmentFile: envFile}).Load(cfg))

	assert.Equal(t, "https://iam.example.com/v3", cfg.Cloud.AuthURL)
	assert.Equal(t, 7, cfg.Run.Retries)
}

func TestConfigLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("cloud:\n  region: [unclosed\n"), 0644))
	err := NewConfigLoader(LoaderConfig{ConfigFile: badYAML}).Load(&testCloudConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")

	badEnv := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(badEnv, []byte("NOT A VALID LINE\n"), 0644))
	err = NewConfigLoader(LoaderConfig{EnvironmentFile: badEnv}).Load(&testCloudConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid line 1")

	t.Setenv("TEST_OS_INSECURE", "sometimes")
	err = NewConfigLoader(LoaderConfig{}).Load(&testCloudConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid boolean value")
}

func TestConfigLoader_MissingFilesAreOptional(t *testing.T) {
	loader := NewConfigLoader(LoaderConfig{
		ConfigFile:      "/non/existent/functional.yaml",
		EnvironmentFile: "/non/existent/functional.env",
	})
	assert.NoError(t, loader.Load(&testCloudConfig{}))
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	assert.Equal(t, "", FindConfigFile("otc-functional-missing"))

	require.NoError(t, os.Mkdir("config", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("config", "otc-functional.yaml"), nil, 0644))
	assert.Equal(t, filepath.Join("config", "otc-functional.yaml"), FindConfigFile("otc-functional"))
}

func TestLogConfig_ConfigureZerolog(t *testing.T) {
	original := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(original) })

	tests := []struct {
		cfg  LogConfig
		want zerolog.Level
	}{
		{cfg: LogConfig{Level: "info"}, want: zerolog.InfoLevel},
		{cfg: LogConfig{Level: "WARNING"}, want: zerolog.WarnLevel},
		{cfg: LogConfig{Level: "error"}, want: zerolog.ErrorLevel},
		{cfg: LogConfig{Level: "off"}, want: zerolog.Disabled},
		{cfg: LogConfig{Level: "bogus"}, want: zerolog.WarnLevel},
		{cfg: LogConfig{Level: "error", Debug: true}, want: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		tt.cfg.ConfigureZerolog()
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "level %q debug %v", tt.cfg.Level, tt.cfg.Debug)
	}
}
