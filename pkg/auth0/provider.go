package auth0

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ServiceName tags every error raised by this package
const ServiceName = "auth0"

// Config holds the client-credentials settings
type Config struct {
	// Domain is the tenant base URL, e.g. https://screepsplus.auth0.com
	Domain       string
	ClientID     string
	ClientSecret string
	// Audience defaults to {Domain}/api/v2/
	Audience string
	// Transport is the base round tripper for token and API calls
	Transport http.RoundTripper
	Timeout   time.Duration
}

// Provider exchanges client credentials for authenticated clients
type Provider struct {
	config Config
}

// NewProvider creates a new credential provider
func NewProvider(config Config) *Provider {
	config.Domain = strings.TrimRight(config.Domain, "/")
	if config.Audience == "" {
		config.Audience = config.Domain + "/api/v2/"
	}
	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}
	return &Provider{config: config}
}

// TokenURL returns the token endpoint
func (p *Provider) TokenURL() string {
	return p.config.Domain + "/oauth/token"
}

// Authenticate performs the credential exchange. There is no retry; a failed exchange
// is returned to the caller.
func (p *Provider) Authenticate(ctx context.Context) (*Client, error) {
	cc := &clientcredentials.Config{
		ClientID:       p.config.ClientID,
		ClientSecret:   p.config.ClientSecret,
		TokenURL:       p.TokenURL(),
		EndpointParams: url.Values{"audience": {p.config.Audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	base := &http.Client{Transport: p.config.Transport, Timeout: p.config.Timeout}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)

	token, err := cc.Token(tokenCtx)
	if err != nil {
		return nil, tokenError(err)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   p.config.Transport,
		},
		Timeout: p.config.Timeout,
	}

	return newClient(p.config.Domain, httpClient, token.Expiry), nil
}

// tokenError converts an oauth2 failure into a tagged error
func tokenError(err error) error {
	httpErr := &httputil.Error{
		Service: ServiceName,
		Op:      "exchange client credentials",
		Kind:    httputil.KindTransport,
		Err:     err,
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		httpErr.StatusCode = retrieveErr.Response.StatusCode
		httpErr.Kind = httputil.KindForStatus(retrieveErr.Response.StatusCode)
		httpErr.Body = string(retrieveErr.Body)
		httpErr.Err = fmt.Errorf("token request rejected")
	}
	return httpErr
}
