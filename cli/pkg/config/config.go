package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	baseconf "otcextensions/core/config"
)

// EnvPrefix is the prefix of every environment override (OS_AUTH_URL, ...).
const EnvPrefix = "OS"

type Config struct {
	Auth      AuthConfig         `mapstructure:"auth"`
	Region    string             `mapstructure:"region_name"`
	Insecure  bool               `mapstructure:"insecure"`
	Endpoints EndpointsConfig    `mapstructure:"endpoints"`
	OBS       OBSConfig          `mapstructure:"obs"`
	Log       baseconf.LogConfig `mapstructure:"log"`
}

// AuthConfig holds Keystone v3 password or token credentials
type AuthConfig struct {
	AuthURL        string `mapstructure:"auth_url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UserDomainName string `mapstructure:"user_domain_name"`
	ProjectName    string `mapstructure:"project_name"`
	ProjectID      string `mapstructure:"project_id"`
	// Token skips password authentication when set
	Token string `mapstructure:"token"`
}

// EndpointsConfig overrides service catalog lookups, mostly for testing
// and for regions whose catalog lacks a service.
type EndpointsConfig struct {
	CSS string `mapstructure:"css"`
	CTS string `mapstructure:"cts"`
}

// OBSConfig holds the AK/SK pair of the S3-compatible object storage
type OBSConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// OBSEndpoint returns the configured object storage endpoint or the public
// one of the region.
func (c *Config) OBSEndpoint() string {
	if c.OBS.Endpoint != "" {
		return c.OBS.Endpoint
	}
	return fmt.Sprintf("https://obs.%s.otc.t-systems.com", c.Region)
}

// envBindings maps config keys to the environment variables operators
// already export for other OpenStack tooling.
var envBindings = map[string]string{
	"auth.auth_url":         "OS_AUTH_URL",
	"auth.username":         "OS_USERNAME",
	"auth.password":         "OS_PASSWORD",
	"auth.user_domain_name": "OS_USER_DOMAIN_NAME",
	"auth.project_name":     "OS_PROJECT_NAME",
	"auth.project_id":       "OS_PROJECT_ID",
	"auth.token":            "OS_TOKEN",
	"region_name":           "OS_REGION_NAME",
	"insecure":              "OS_INSECURE",
	"endpoints.css":         "OS_CSS_ENDPOINT_OVERRIDE",
	"endpoints.cts":         "OS_CTS_ENDPOINT_OVERRIDE",
	"obs.endpoint":          "OS_OBS_ENDPOINT",
	"obs.access_key":        "OS_ACCESS_KEY",
	"obs.secret_key":        "OS_SECRET_KEY",
	"log.level":             "OS_LOG_LEVEL",
}

// Load reads configFile, or config.yaml from the default search paths when
// configFile is empty, and merges environment and flag overrides.
// An explicit file that is missing or broken is an error.
func Load(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// SetConfigName also clears a file set by an earlier Load
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.otc")
		viper.AddConfigPath("/etc/otc/")
	}
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}

	viper.SetDefault("auth.user_domain_name", "Default")
	viper.SetDefault("region_name", "eu-de")
	viper.SetDefault("log.level", "warn")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Log.Level = viper.GetString("log.level")
	config.Log.Debug = viper.GetBool("debug")

	return &config, nil
}

// Validate reports missing credentials before any request is attempted
func (c *Config) Validate() error {
	if c.Auth.AuthURL == "" {
		return fmt.Errorf("auth URL is required (set --os-auth-url or OS_AUTH_URL)")
	}
	if c.Auth.Token != "" {
		if c.Auth.ProjectID == "" {
			return fmt.Errorf("project ID is required with token authentication (set OS_PROJECT_ID)")
		}
		return nil
	}
	if c.Auth.Username == "" {
		return fmt.Errorf("username is required (set --os-username or OS_USERNAME)")
	}
	if c.Auth.ProjectName == "" && c.Auth.ProjectID == "" {
		return fmt.Errorf("project name or ID is required (set OS_PROJECT_NAME or OS_PROJECT_ID)")
	}
	return nil
}
