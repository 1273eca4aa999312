package framework

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/suite"

	"otcextensions/cli/pkg/client"
	"otcextensions/cli/pkg/obs"
	baseconf "otcextensions/core/config"
	"otcextensions/core/metrics"
)

// FunctionalSuite connects to a real cloud. It skips every test when no
// cloud is configured.
type FunctionalSuite struct {
	suite.Suite
	Config TestConfig
	Client *client.Client
	OBS    *obs.Client
	// Metrics counts the API requests sent by Client
	Metrics *metrics.APIMetrics
	Ctx     context.Context
	cancel  context.CancelFunc
}

func (s *FunctionalSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err, "failed to load functional test configuration")
	s.Config = cfg

	if !cfg.Configured() {
		s.T().Skip("OS_AUTH_URL is not set, skipping functional tests")
	}

	cfg.Log.ConfigureZerolog()
	baseconf.UseConsoleWriter(os.Stderr)

	s.Ctx, s.cancel = context.WithTimeout(context.Background(), cfg.Timeout)

	clientCfg := cfg.ClientConfig()
	s.Require().NoError(clientCfg.Validate())
	s.Metrics = metrics.NewAPIMetrics()
	s.Client = client.New(clientCfg, client.WithTransportWrapper(s.Metrics.RoundTripper))

	s.OBS, err = obs.New(s.Ctx, clientCfg)
	if err != nil {
		s.T().Logf("Object storage unavailable: %v", err)
	}

	s.T().Logf("Functional tests against %s in %s", cfg.AuthURL, cfg.Region)
}

func (s *FunctionalSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Metrics != nil {
		s.reportRequests()
	}
}

// reportRequests logs how many API requests the suite sent
func (s *FunctionalSuite) reportRequests() {
	counts, err := s.Metrics.Requests()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather request metrics")
		return
	}
	for _, c := range counts {
		log.Info().
			Str("host", c.Host).
			Str("method", c.Method).
			Str("status", c.StatusCode).
			Float64("count", c.Count).
			Msg("API requests")
	}
}

// RequireOBS skips the current test when no object storage client could
// be built.
func (s *FunctionalSuite) RequireOBS() {
	if s.OBS == nil {
		s.T().Skip("OS_ACCESS_KEY and OS_SECRET_KEY are required")
	}
}

// ShortID returns eight random hex characters for unique resource names
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
