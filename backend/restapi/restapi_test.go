package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/backend/memory"
	"github.com/tnc-ca-geo/SAGE/backend/test"
	"github.com/tnc-ca-geo/SAGE/credential"
)

var _ = gc.Suite(new(RestAPITestSuite))
var _ = gc.Suite(new(AuthTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type RestAPITestSuite struct {
	test.SuiteBase

	srv *httptest.Server
}

func (s *RestAPITestSuite) SetUpTest(c *gc.C) {
	mem := memory.NewInMemoryBackend(nil)
	s.srv = newTestServer(c, mem)

	client, err := s.connector().Connect(context.TODO(), &credential.Credential{
		Name:         "credentialsLC",
		RefreshToken: "credentialsLC",
	})
	c.Assert(err, gc.IsNil)
	s.SetBackend(client, mem)
}

func (s *RestAPITestSuite) TearDownTest(c *gc.C) {
	s.srv.Close()
}

func (s *RestAPITestSuite) connector() *Connector {
	return &Connector{
		BaseURL:    s.srv.URL,
		TokenURL:   s.srv.URL + tokenEndpoint,
		ClientID:   "sage",
		HTTPClient: s.srv.Client(),
	}
}

type AuthTestSuite struct {
	mem *memory.InMemoryBackend
	srv *httptest.Server
}

func (s *AuthTestSuite) SetUpTest(c *gc.C) {
	s.mem = memory.NewInMemoryBackend(nil)
	s.srv = newTestServer(c, s.mem)
}

func (s *AuthTestSuite) TearDownTest(c *gc.C) {
	s.srv.Close()
}

func (s *AuthTestSuite) TestMissingBearerToken(c *gc.C) {
	client := NewClient(s.srv.URL, s.srv.Client())

	_, err := client.ListTasks(context.TODO())
	c.Assert(xerrors.Is(err, backend.ErrUnauthenticated), gc.Equals, true, gc.Commentf("got %v", err))

	var remoteErr *RemoteError
	c.Assert(xerrors.As(err, &remoteErr), gc.Equals, true)
	c.Assert(remoteErr.Status, gc.Equals, http.StatusUnauthorized)
}

func (s *AuthTestSuite) TestRejectedRefreshToken(c *gc.C) {
	conn := &Connector{
		BaseURL:    s.srv.URL,
		TokenURL:   s.srv.URL + tokenEndpoint,
		HTTPClient: s.srv.Client(),
	}
	client, err := conn.Connect(context.TODO(), &credential.Credential{Name: "stale", RefreshToken: "revoked-token"})
	c.Assert(err, gc.IsNil)

	_, err = client.ListTasks(context.TODO())
	c.Assert(xerrors.Is(err, backend.ErrUnauthenticated), gc.Equals, true, gc.Commentf("got %v", err))
}

func (s *AuthTestSuite) TestRevokedAccount(c *gc.C) {
	conn := &Connector{
		BaseURL:    s.srv.URL,
		TokenURL:   s.srv.URL + tokenEndpoint,
		HTTPClient: s.srv.Client(),
	}
	client, err := conn.Connect(context.TODO(), &credential.Credential{Name: "credentialsLC", RefreshToken: "credentialsLC"})
	c.Assert(err, gc.IsNil)
	_, err = client.ListTasks(context.TODO())
	c.Assert(err, gc.IsNil)

	s.mem.Revoke("credentialsLC")
	_, err = client.ListTasks(context.TODO())
	c.Assert(xerrors.Is(err, backend.ErrUnauthenticated), gc.Equals, true, gc.Commentf("got %v", err))
}

func (s *AuthTestSuite) TestConnectValidation(c *gc.C) {
	conn := &Connector{BaseURL: s.srv.URL, TokenURL: DefaultTokenURL(s.srv.URL + "/")}

	_, err := conn.Connect(context.TODO(), &credential.Credential{Name: "empty"})
	c.Assert(xerrors.Is(err, backend.ErrUnauthenticated), gc.Equals, true)

	_, err = (&Connector{}).Connect(context.TODO(), &credential.Credential{Name: "lc", RefreshToken: "lc"})
	c.Assert(err, gc.ErrorMatches, "connect: backend and token URLs must be specified")
}

func (s *AuthTestSuite) TestTokenEndpointGrantTypes(c *gc.C) {
	res, err := s.srv.Client().PostForm(s.srv.URL+tokenEndpoint, map[string][]string{
		"grant_type": {"client_credentials"},
	})
	c.Assert(err, gc.IsNil)
	_ = res.Body.Close()
	c.Assert(res.StatusCode, gc.Equals, http.StatusBadRequest)
}

func (s *AuthTestSuite) TestServerConfigValidation(c *gc.C) {
	_, err := NewServer(ServerConfig{})
	c.Assert(err, gc.ErrorMatches, "(?s)rest server: config validation failed: .*account resolver has not been provided.*")
}

func newTestServer(c *gc.C, mem *memory.InMemoryBackend) *httptest.Server {
	srv, err := NewServer(ServerConfig{
		IssueTokens: true,
		Accounts: AccountResolverFunc(func(token string) (backend.Backend, error) {
			if token == "revoked-token" {
				return nil, xerrors.Errorf("token %q: %w", token, backend.ErrUnauthenticated)
			}
			return mem.Account(token), nil
		}),
	})
	c.Assert(err, gc.IsNil)
	return httptest.NewServer(srv)
}
