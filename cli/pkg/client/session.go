package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/tokens"
	"github.com/rs/zerolog/log"

	"otcextensions/cli/pkg/config"
)

// tokenRefreshMargin is how long before expiry a cached token is replaced.
const tokenRefreshMargin = time.Minute

const userAgent = "otc-cli"

// Token is an issued Keystone v3 token together with its scope
type Token struct {
	ID          string    `json:"id"`
	ExpiresAt   time.Time `json:"expires"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name,omitempty"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
}

// authResult is the part of tokens.CreateResult and tokens.GetResult the
// session reads back after authentication.
type authResult interface {
	ExtractToken() (*tokens.Token, error)
	ExtractProject() (*tokens.Project, error)
	ExtractUser() (*tokens.User, error)
}

// Session authenticates against the identity service and resolves service
// endpoints from the returned catalog. Safe for concurrent use.
type Session struct {
	httpClient *http.Client
	auth       config.AuthConfig
	region     string

	mu       sync.Mutex
	provider *gophercloud.ProviderClient
}

// NewSession creates a Session; no request is made until a token is needed.
func NewSession(httpClient *http.Client, auth config.AuthConfig, region string) *Session {
	return &Session{
		httpClient: httpClient,
		auth:       auth,
		region:     region,
	}
}

// Provider returns the authenticated provider client. The first call
// authenticates; later calls re-authenticate when the token is about to
// expire. Requests made through the provider re-authenticate on 401.
func (s *Session) Provider(ctx context.Context) (*gophercloud.ProviderClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider != nil {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
		return s.provider, nil
	}

	provider, err := openstack.NewClient(s.auth.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth URL %q: %w", s.auth.AuthURL, err)
	}
	provider.HTTPClient = *s.httpClient
	provider.UserAgent.Prepend(userAgent)

	log.Debug().Str("auth_url", s.auth.AuthURL).Str("user", s.auth.Username).Bool("token", s.auth.Token != "").Msg("Authenticating")

	if err := openstack.Authenticate(ctx, provider, s.authOptions()); err != nil {
		return nil, wrapError("authenticate", err)
	}
	s.provider = provider

	if token, err := currentToken(provider); err == nil {
		log.Debug().
			Str("project_id", token.ProjectID).
			Time("expires_at", token.ExpiresAt).
			Msg("Token issued")
	}
	return provider, nil
}

// refresh replaces a token that expires within tokenRefreshMargin. The
// caller holds s.mu.
func (s *Session) refresh(ctx context.Context) error {
	if s.provider.ReauthFunc == nil {
		return nil
	}
	token, err := currentToken(s.provider)
	if err != nil || time.Until(token.ExpiresAt) > tokenRefreshMargin {
		return nil
	}

	log.Debug().Time("expires_at", token.ExpiresAt).Msg("Token about to expire, re-authenticating")
	if err := s.provider.Reauthenticate(ctx, s.provider.Token()); err != nil {
		return wrapError("authenticate", err)
	}
	return nil
}

func (s *Session) authOptions() gophercloud.AuthOptions {
	if s.auth.Token != "" {
		return gophercloud.AuthOptions{
			IdentityEndpoint: s.auth.AuthURL,
			TokenID:          s.auth.Token,
		}
	}

	opts := gophercloud.AuthOptions{
		IdentityEndpoint: s.auth.AuthURL,
		Username:         s.auth.Username,
		Password:         s.auth.Password,
		DomainName:       s.auth.UserDomainName,
		AllowReauth:      true,
		Scope:            &gophercloud.AuthScope{ProjectID: s.auth.ProjectID},
	}
	// a project ID must stand alone in the scope
	if s.auth.ProjectID == "" {
		opts.Scope.ProjectName = s.auth.ProjectName
		opts.Scope.DomainName = s.auth.UserDomainName
	}
	return opts
}

// Token returns a valid token, authenticating when none is cached or the
// cached one is about to expire.
func (s *Session) Token(ctx context.Context) (*Token, error) {
	provider, err := s.Provider(ctx)
	if err != nil {
		return nil, err
	}
	return currentToken(provider)
}

func currentToken(provider *gophercloud.ProviderClient) (*Token, error) {
	result, ok := provider.GetAuthResult().(authResult)
	if !ok {
		return nil, errors.New("identity service returned no token details")
	}

	issued, err := result.ExtractToken()
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	token := &Token{ID: provider.Token(), ExpiresAt: issued.ExpiresAt}

	if project, err := result.ExtractProject(); err == nil && project != nil {
		token.ProjectID = project.ID
		token.ProjectName = project.Name
	}
	if user, err := result.ExtractUser(); err == nil && user != nil {
		token.UserID = user.ID
		token.UserName = user.Name
	}
	return token, nil
}

// Endpoint returns the base URL of serviceType. A non-empty override wins
// over the catalog. The {project_id} placeholder is substituted in both.
func (s *Session) Endpoint(ctx context.Context, serviceType, override string) (string, error) {
	provider, err := s.Provider(ctx)
	if err != nil {
		return "", err
	}
	token, err := currentToken(provider)
	if err != nil {
		return "", err
	}

	if override != "" {
		return expandEndpoint(override, token.ProjectID), nil
	}

	url, err := provider.EndpointLocator(gophercloud.EndpointOpts{
		Type:         serviceType,
		Region:       s.region,
		Availability: gophercloud.AvailabilityPublic,
	})
	if err != nil {
		return "", fmt.Errorf("no public %s endpoint in region %q found in the service catalog: %w", serviceType, s.region, err)
	}
	return expandEndpoint(url, token.ProjectID), nil
}

// expandEndpoint fills in the project placeholder. Catalog entries that stop
// at the service root get the v1.0 project path appended.
func expandEndpoint(url, projectID string) string {
	url = strings.TrimRight(url, "/")
	if strings.Contains(url, "{project_id}") {
		return strings.ReplaceAll(url, "{project_id}", projectID)
	}
	if strings.Contains(url, "$(tenant_id)s") {
		return strings.ReplaceAll(url, "$(tenant_id)s", projectID)
	}
	if projectID != "" && !strings.Contains(url, projectID) {
		return url + "/v1.0/" + projectID
	}
	return url
}
