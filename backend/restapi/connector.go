package restapi

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/credential"
)

// Connector opens backend clients that authenticate with a credential's
// refresh token. Access tokens are obtained from TokenURL and refreshed
// transparently when they expire.
type Connector struct {
	// The base URL of the backend API.
	BaseURL string

	// The OAuth2 token endpoint.
	TokenURL string

	// Client settings used when a credential does not carry its own.
	ClientID     string
	ClientSecret string
	Scopes       []string

	// The http.Client used for both token refreshes and API calls. If
	// not specified, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Connect returns a client whose calls are attributed to cred. No network
// traffic happens until the first call.
func (c *Connector) Connect(_ context.Context, cred *credential.Credential) (backend.Backend, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, xerrors.Errorf("connect: %w", backend.ErrUnauthenticated)
	}
	if c.BaseURL == "" || c.TokenURL == "" {
		return nil, xerrors.New("connect: backend and token URLs must be specified")
	}

	cfg := &oauth2.Config{
		ClientID:     firstNonEmpty(cred.ClientID, c.ClientID),
		ClientSecret: firstNonEmpty(cred.ClientSecret, c.ClientSecret),
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if len(cred.Scopes) != 0 {
		cfg.Scopes = cred.Scopes
	}

	// Token refreshes outlive the context of the call that opened the
	// client.
	tokenCtx := context.Background()
	if c.HTTPClient != nil {
		tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, c.HTTPClient)
	}
	ts := cfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cred.RefreshToken})

	return NewClient(c.BaseURL, oauth2.NewClient(tokenCtx, ts)), nil
}

// DefaultTokenURL returns the token endpoint served next to the API at
// baseURL.
func DefaultTokenURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + tokenEndpoint
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
