package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Discovery is the provider's OpenID configuration document. The endpoint and key fields
// decode straight into oidc.ProviderConfig.
type Discovery struct {
	oidc.ProviderConfig
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// Tokens is the result of a code exchange or refresh grant.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// IdentityProvider is the OAuth2/OIDC provider as the sign-in flow sees it.
type IdentityProvider interface {
	AuthCodeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*Tokens, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (*Profile, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

type ProviderConfig struct {
	WellKnownURL string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	ServiceID    string
}

// Provider talks to an OIDC provider located by its well-known discovery URL. The discovery
// document is fetched on first use and cached.
type Provider struct {
	cfg        ProviderConfig
	httpClient *http.Client
	keySet     oidc.KeySet
	nowTime    func() time.Time

	group        singleflight.Group
	mu           sync.RWMutex
	discovery    *Discovery
	oidcProvider *oidc.Provider
	verifier     *oidc.IDTokenVerifier
}

var _ IdentityProvider = (*Provider)(nil)

type ProviderOption func(*Provider)

func WithProviderHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithKeySet verifies ID tokens against ks instead of the provider's jwks_uri.
func WithKeySet(ks oidc.KeySet) ProviderOption {
	return func(p *Provider) {
		p.keySet = ks
	}
}

func WithProviderNowTime(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowTime = now
	}
}

func NewProvider(cfg ProviderConfig, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		nowTime:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discover returns the provider configuration, fetching it once. Concurrent first callers
// share a single request; a failed fetch is retried by the next caller.
func (p *Provider) Discover(ctx context.Context) (*Discovery, error) {
	p.mu.RLock()
	d := p.discovery
	p.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	v, err, _ := p.group.Do("discovery", func() (any, error) {
		d, err := p.fetchDiscovery(ctx)
		if err != nil {
			return nil, err
		}
		provider := d.NewProvider(oidc.ClientContext(ctx, p.httpClient))
		verifier := p.newVerifier(d, provider)
		p.mu.Lock()
		p.discovery, p.oidcProvider, p.verifier = d, provider, verifier
		p.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Discovery), nil
}

func (p *Provider) fetchDiscovery(ctx context.Context) (*Discovery, error) {
	if p.cfg.WellKnownURL == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[Provider Discover] DEFRA_ID_WELL_KNOWN_URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.WellKnownURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider Discover] build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", errors.Wrapf(err, "[Provider Discover] fetch"))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", fmt.Errorf("[Provider Discover] unexpected status %d", resp.StatusCode))
	}

	var d Discovery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", errors.Wrapf(err, "[Provider Discover] decode"))
	}
	if d.AuthURL == "" || d.TokenURL == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[Provider Discover] discovery document lacks authorization or token endpoint")
	}
	if d.JWKSURL == "" && p.keySet == nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[Provider Discover] discovery document lacks jwks_uri")
	}
	return &d, nil
}

// newVerifier checks ID tokens against the provider's jwks_uri, or the injected key set when one is set.
func (p *Provider) newVerifier(d *Discovery, provider *oidc.Provider) *oidc.IDTokenVerifier {
	cfg := &oidc.Config{
		ClientID:        p.cfg.ClientID,
		SkipIssuerCheck: d.IssuerURL == "",
		Now:             p.nowTime,
	}
	if p.keySet != nil {
		cfg.SupportedSigningAlgs = d.Algorithms
		return oidc.NewVerifier(d.IssuerURL, p.keySet, cfg)
	}
	return provider.Verifier(cfg)
}

func (p *Provider) oauth2Config() *oauth2.Config {
	p.mu.RLock()
	endpoint := p.oidcProvider.Endpoint()
	p.mu.RUnlock()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       []string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess},
	}
}

// AuthCodeURL is the provider authorization URL the browser is sent to for sign-in.
func (p *Provider) AuthCodeURL(ctx context.Context, state string) (string, error) {
	if _, err := p.Discover(ctx); err != nil {
		return "", err
	}
	var opts []oauth2.AuthCodeOption
	if p.cfg.ServiceID != "" {
		opts = append(opts, oauth2.SetAuthURLParam("serviceId", p.cfg.ServiceID))
	}
	return p.oauth2Config().AuthCodeURL(state, opts...), nil
}

// Exchange trades an authorization code for tokens, server to server.
func (p *Provider) Exchange(ctx context.Context, code string) (*Tokens, error) {
	if _, err := p.Discover(ctx); err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider Exchange]")
	}
	idToken, _ := token.Extra("id_token").(string)
	return &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		Expiry:       token.Expiry,
	}, nil
}

type idTokenClaims struct {
	Subject               string   `json:"sub"`
	Email                 string   `json:"email"`
	Name                  string   `json:"name"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	ContactID             string   `json:"contactId"`
	CurrentRelationshipID string   `json:"currentRelationshipId"`
	Relationships         []string `json:"relationships"`
}

// VerifyIDToken checks the ID token signature, audience and expiry and returns the profile it carries.
func (p *Provider) VerifyIDToken(ctx context.Context, rawIDToken string) (*Profile, error) {
	if rawIDToken == "" {
		return nil, errors.New("[Provider VerifyIDToken] no id_token in token response")
	}
	if _, err := p.Discover(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	verifier := p.verifier
	p.mu.RUnlock()

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider VerifyIDToken]")
	}
	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrapf(err, "[Provider VerifyIDToken] claims")
	}
	return claims.profile(), nil
}

func (c idTokenClaims) profile() *Profile {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return &Profile{
		ID:           c.Subject,
		Email:        c.Email,
		Name:         name,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		ContactID:    c.ContactID,
		Organisation: c.organisation(),
	}
}

// organisation picks the organisation name out of the current relationship. Relationships
// are "relationshipId:organisationId:organisationName:..." strings.
func (c idTokenClaims) organisation() string {
	for _, rel := range c.Relationships {
		parts := strings.Split(rel, ":")
		if len(parts) >= 3 && parts[0] == c.CurrentRelationshipID {
			return parts[2]
		}
	}
	return ""
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh runs a refresh_token grant. The provider expects the scope and redirect_uri of the
// original sign-in on refresh as well.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, errors.Wrapf(errors.ErrTokenExpired, "[Provider Refresh] no refresh token")
	}
	if _, err := p.Discover(ctx); err != nil {
		return nil, err
	}
	tokenURL := p.oauth2Config().Endpoint.TokenURL

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {refreshToken},
		"scope":         {fmt.Sprintf("%s %s %s", oidc.ScopeOpenID, oidc.ScopeOfflineAccess, p.cfg.ClientID)},
		"redirect_uri":  {p.cfg.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider Refresh] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", errors.Wrapf(err, "[Provider Refresh] request"))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider Refresh] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", fmt.Errorf("[Provider Refresh] status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, errors.Wrapf(err, "[Provider Refresh] decode")
	}
	if tr.AccessToken == "" {
		return nil, errors.New("[Provider Refresh] token response has no access_token")
	}
	tokens := &Tokens{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken, IDToken: tr.IDToken}
	if tr.ExpiresIn > 0 {
		tokens.Expiry = p.nowTime().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tokens, nil
}
