package auth_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "nrf-client"
	testClientSecret = "nrf-secret"
	testRedirectURL  = "http://localhost:3000/login/return"
)

// fakeIdP is an OIDC provider serving discovery and a token endpoint.
type fakeIdP struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	discoveryHits atomic.Int32
	jwksHits      atomic.Int32

	mu         sync.Mutex
	tokenForms []url.Values
	tokenFail  bool
	claims     jwt.MapClaims
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", idp.discovery)
	mux.HandleFunc("POST /token", idp.token)
	mux.HandleFunc("GET /jwks", idp.jwks)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) wellKnownURL() string {
	return f.server.URL + "/.well-known/openid-configuration"
}

func (f *fakeIdP) discovery(w http.ResponseWriter, _ *http.Request) {
	f.discoveryHits.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                f.server.URL,
		"authorization_endpoint":                f.server.URL + "/authorize",
		"token_endpoint":                        f.server.URL + "/token",
		"end_session_endpoint":                  f.server.URL + "/logout",
		"jwks_uri":                              f.server.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (f *fakeIdP) jwks(w http.ResponseWriter, _ *http.Request) {
	f.jwksHits.Add(1)
	enc := base64.RawURLEncoding
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   enc.EncodeToString(f.key.N.Bytes()),
			"e":   enc.EncodeToString(big.NewInt(int64(f.key.E)).Bytes()),
		}},
	})
}

func (f *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, r.PostForm)
	fail := f.tokenFail
	f.mu.Unlock()

	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-" + r.PostForm.Get("grant_type"),
		"refresh_token": "refresh-2",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"id_token":      f.idToken(),
	})
}

func (f *fakeIdP) idToken() string {
	claims := jwt.MapClaims{
		"iss":                   f.server.URL,
		"aud":                   testClientID,
		"sub":                   "user-123",
		"exp":                   time.Now().Add(time.Hour).Unix(),
		"iat":                   time.Now().Unix(),
		"email":                 "ada@example.com",
		"firstName":             "Ada",
		"lastName":              "Lovelace",
		"contactId":             "contact-1",
		"currentRelationshipId": "rel-2",
		"relationships":         []string{"rel-1:org-1:Other Ltd:0", "rel-2:org-2:Analytical Engines Ltd:0"},
	}
	f.mu.Lock()
	for k, v := range f.claims {
		claims[k] = v
	}
	f.mu.Unlock()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIdP) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.tokenForms)
	return f.tokenForms[len(f.tokenForms)-1]
}

func (f *fakeIdP) provider(serviceID string) *auth.Provider {
	return auth.NewProvider(auth.ProviderConfig{
		WellKnownURL: f.wellKnownURL(),
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
		ServiceID:    serviceID,
	},
		auth.WithProviderHTTPClient(f.server.Client()),
		auth.WithKeySet(&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&f.key.PublicKey}}),
	)
}

func TestProviderDiscover(t *testing.T) {
	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		idp := newFakeIdP(t)
		p := idp.provider("")

		var wg sync.WaitGroup
		results := make([]*auth.Discovery, 10)
		errs := make([]error, 10)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = p.Discover(context.Background())
			}()
		}
		wg.Wait()
		for i := range results {
			require.NoError(t, errs[i])
			require.Equal(t, idp.server.URL+"/token", results[i].TokenURL)
			require.Equal(t, idp.server.URL+"/logout", results[i].EndSessionEndpoint)
		}

		_, err := p.Discover(context.Background())
		require.NoError(t, err)
		require.LessOrEqual(t, idp.discoveryHits.Load(), int32(10))
		before := idp.discoveryHits.Load()
		_, err = p.Discover(context.Background())
		require.NoError(t, err)
		require.Equal(t, before, idp.discoveryHits.Load())
	})

	t.Run("missing well-known url", func(t *testing.T) {
		p := auth.NewProvider(auth.ProviderConfig{ClientID: testClientID})
		_, err := p.Discover(context.Background())
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrConfiguration))
		require.Contains(t, err.Error(), "DEFRA_ID_WELL_KNOWN_URL not configured")
	})

	t.Run("unreachable provider", func(t *testing.T) {
		p := auth.NewProvider(auth.ProviderConfig{WellKnownURL: "http://127.0.0.1:1/.well-known"})
		_, err := p.Discover(context.Background())
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrUpstreamService))
	})
}

func TestProviderAuthCodeURL(t *testing.T) {
	idp := newFakeIdP(t)
	p := idp.provider("service-42")

	raw, err := p.AuthCodeURL(context.Background(), "state-abc")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, idp.server.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testRedirectURL, q.Get("redirect_uri"))
	require.Equal(t, "openid offline_access", q.Get("scope"))
	require.Equal(t, "state-abc", q.Get("state"))
	require.Equal(t, "service-42", q.Get("serviceId"))
}

func TestProviderExchangeAndVerify(t *testing.T) {
	idp := newFakeIdP(t)
	p := idp.provider("")
	ctx := context.Background()

	tokens, err := p.Exchange(ctx, "the-code")
	require.NoError(t, err)
	require.Equal(t, "access-authorization_code", tokens.AccessToken)
	require.Equal(t, "refresh-2", tokens.RefreshToken)
	require.NotEmpty(t, tokens.IDToken)
	require.False(t, tokens.Expiry.IsZero())

	form := idp.lastForm()
	require.Equal(t, "the-code", form.Get("code"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))

	profile, err := p.VerifyIDToken(ctx, tokens.IDToken)
	require.NoError(t, err)
	require.Equal(t, "user-123", profile.ID)
	require.Equal(t, "ada@example.com", profile.Email)
	require.Equal(t, "Ada Lovelace", profile.Name)
	require.Equal(t, "Analytical Engines Ltd", profile.Organisation)
	require.Equal(t, "contact-1", profile.ContactID)

	t.Run("rejects token for another audience", func(t *testing.T) {
		idp.mu.Lock()
		idp.claims = jwt.MapClaims{"aud": "someone-else"}
		idp.mu.Unlock()
		defer func() {
			idp.mu.Lock()
			idp.claims = nil
			idp.mu.Unlock()
		}()

		_, err := p.VerifyIDToken(ctx, idp.idToken())
		require.Error(t, err)
	})

	t.Run("rejects token signed by another key", func(t *testing.T) {
		other := newFakeIdP(t)
		_, err := p.VerifyIDToken(ctx, other.idToken())
		require.Error(t, err)
	})
}

func TestProviderVerifiesWithDiscoveredKeys(t *testing.T) {
	idp := newFakeIdP(t)
	p := auth.NewProvider(auth.ProviderConfig{
		WellKnownURL: idp.wellKnownURL(),
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
	}, auth.WithProviderHTTPClient(idp.server.Client()))
	ctx := context.Background()

	profile, err := p.VerifyIDToken(ctx, idp.idToken())
	require.NoError(t, err)
	require.Equal(t, "user-123", profile.ID)
	require.Positive(t, idp.jwksHits.Load())

	t.Run("rejects token signed by another key", func(t *testing.T) {
		other := newFakeIdP(t)
		_, err := p.VerifyIDToken(ctx, other.idToken())
		require.Error(t, err)
	})

	t.Run("discovery without jwks_uri", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"issuer":                 "https://idp.example",
				"authorization_endpoint": "https://idp.example/authorize",
				"token_endpoint":         "https://idp.example/token",
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		p := auth.NewProvider(auth.ProviderConfig{WellKnownURL: srv.URL + "/.well-known/openid-configuration"})
		_, err := p.Discover(ctx)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}

func TestProviderRefresh(t *testing.T) {
	idp := newFakeIdP(t)
	p := idp.provider("")

	tokens, err := p.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-refresh_token", tokens.AccessToken)
	require.Equal(t, "refresh-2", tokens.RefreshToken)

	form := idp.lastForm()
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "refresh-1", form.Get("refresh_token"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))
	require.Equal(t, "openid offline_access "+testClientID, form.Get("scope"))
	require.Equal(t, testRedirectURL, form.Get("redirect_uri"))

	t.Run("provider rejects grant", func(t *testing.T) {
		idp.mu.Lock()
		idp.tokenFail = true
		idp.mu.Unlock()

		_, err := p.Refresh(context.Background(), "refresh-1")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrUpstreamService))
	})

	t.Run("no refresh token", func(t *testing.T) {
		_, err := p.Refresh(context.Background(), "")
		require.True(t, errors.Is(err, errors.ErrTokenExpired))
	})
}
