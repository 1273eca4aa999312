package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/rs/zerolog/log"

	"otcextensions/cli/pkg/config"
)

// Client is the entry point to the cloud services used by the CLI
type Client struct {
	config  *config.Config
	session *Session
}

// Option customizes a Client
type Option func(*options)

type options struct {
	wrapTransport func(http.RoundTripper) http.RoundTripper
}

// WithTransportWrapper wraps the HTTP transport of every request, e.g. to
// record metrics.
func WithTransportWrapper(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(o *options) {
		o.wrapTransport = wrap
	}
}

func New(cfg *config.Config, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	if o.wrapTransport != nil {
		transport = o.wrapTransport(transport)
	}
	httpClient := &http.Client{Timeout: 60 * time.Second, Transport: transport}

	return &Client{
		config:  cfg,
		session: NewSession(httpClient, cfg.Auth, cfg.Region),
	}
}

// Token returns the current session token, authenticating if needed
func (c *Client) Token(ctx context.Context) (*Token, error) {
	return c.session.Token(ctx)
}

// CSS returns the client of the search cluster service
func (c *Client) CSS() *CSSClient {
	return &CSSClient{service: c.service("css", c.config.Endpoints.CSS)}
}

// CTS returns the client of the cloud trace service
func (c *Client) CTS() *CTSClient {
	return &CTSClient{service: c.service("cts", c.config.Endpoints.CTS)}
}

func (c *Client) service(serviceType, override string) *serviceClient {
	return &serviceClient{
		session:     c.session,
		serviceType: serviceType,
		override:    override,
	}
}

// serviceClient performs authenticated JSON requests against one service.
type serviceClient struct {
	session     *Session
	serviceType string
	override    string
}

// anySuccess is accepted when a request lists no status codes of its own.
var anySuccess = []int{
	http.StatusOK,
	http.StatusCreated,
	http.StatusAccepted,
	http.StatusNonAuthoritativeInfo,
	http.StatusNoContent,
}

type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	// ok lists the accepted status codes; empty means any 2xx
	ok []int
}

// do executes r and decodes the response into out when out is non-nil and
// the body is not empty. It returns the raw body for callers that need it.
func (s *serviceClient) do(ctx context.Context, r request, out any) ([]byte, error) {
	provider, err := s.session.Provider(ctx)
	if err != nil {
		return nil, err
	}
	endpoint, err := s.session.Endpoint(ctx, s.serviceType, s.override)
	if err != nil {
		return nil, err
	}
	sc := &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       endpoint + "/",
		Type:           s.serviceType,
	}

	target := sc.ServiceURL(strings.TrimLeft(r.path, "/"))
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	opts := &gophercloud.RequestOpts{
		OkCodes:          r.ok,
		KeepResponseBody: true,
		MoreHeaders:      map[string]string{"Accept": "application/json"},
	}
	if len(opts.OkCodes) == 0 {
		opts.OkCodes = anySuccess
	}
	if r.body != nil {
		opts.JSONBody = r.body
	}

	start := time.Now()
	resp, err := sc.Request(ctx, r.method, target, opts)
	if err != nil {
		return nil, wrapError(r.operation, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", r.method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", r.operation, err)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", r.operation, err)
		}
	}
	return data, nil
}
