package framework

import (
	"time"

	"otcextensions/cli/pkg/config"
	baseconf "otcextensions/core/config"
)

// EnvPrefix lets functional runs override the variables of an interactive
// shell: FUNC_OS_PROJECT_NAME wins over OS_PROJECT_NAME.
const EnvPrefix = "FUNC"

// TestConfig describes the cloud the functional tests run against
type TestConfig struct {
	AuthURL        string `yaml:"auth_url" env:"OS_AUTH_URL"`
	Username       string `yaml:"username" env:"OS_USERNAME"`
	Password       string `yaml:"password" env:"OS_PASSWORD"`
	UserDomainName string `yaml:"user_domain_name" env:"OS_USER_DOMAIN_NAME"`
	ProjectName    string `yaml:"project_name" env:"OS_PROJECT_NAME"`
	ProjectID      string `yaml:"project_id" env:"OS_PROJECT_ID"`
	Region         string `yaml:"region_name" env:"OS_REGION_NAME" default:"eu-de"`
	Insecure       bool   `yaml:"insecure" env:"OS_INSECURE" default:"false"`

	OBS OBSConfig `yaml:"obs"`

	Timeout time.Duration      `yaml:"timeout" env:"FUNCTIONAL_TIMEOUT" default:"5m"`
	Log     baseconf.LogConfig `yaml:"log"`
}

// OBSConfig holds the object storage credentials used for bucket fixtures
type OBSConfig struct {
	Endpoint  string `yaml:"endpoint" env:"OS_OBS_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"OS_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"OS_SECRET_KEY"`
}

// LoadConfig reads otc-functional.yaml, when present, and the environment
func LoadConfig() (TestConfig, error) {
	var cfg TestConfig
	loader := baseconf.NewConfigLoader(baseconf.LoaderConfig{
		ConfigFile: baseconf.FindConfigFile("otc-functional"),
		EnvPrefix:  EnvPrefix,
	})
	if err := loader.Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Configured reports whether a cloud to test against was given
func (c TestConfig) Configured() bool {
	return c.AuthURL != ""
}

// ClientConfig converts the test configuration into the CLI one
func (c TestConfig) ClientConfig() *config.Config {
	domain := c.UserDomainName
	if domain == "" {
		domain = "Default"
	}
	return &config.Config{
		Auth: config.AuthConfig{
			AuthURL:        c.AuthURL,
			Username:       c.Username,
			Password:       c.Password,
			UserDomainName: domain,
			ProjectName:    c.ProjectName,
			ProjectID:      c.ProjectID,
		},
		Region:   c.Region,
		Insecure: c.Insecure,
		OBS: config.OBSConfig{
			Endpoint:  c.OBS.Endpoint,
			AccessKey: c.OBS.AccessKey,
			SecretKey: c.OBS.SecretKey,
		},
		Log: c.Log,
	}
}
