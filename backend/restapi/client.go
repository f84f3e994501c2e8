package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

// Compile-time check for ensuring Client implements backend.Backend.
var _ backend.Backend = (*Client)(nil)

// Client provides an API for talking to a remote backend over HTTP. The
// identity of every call is determined by the http.Client it was created
// with.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a new client instance for the backend at baseURL. The
// provided http.Client is expected to attach credentials to every request.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// Submit queues a job and returns the receipt issued by the backend.
func (c *Client) Submit(ctx context.Context, spec *backend.JobSpec) (*backend.Receipt, error) {
	if spec == nil {
		return nil, xerrors.Errorf("submit: nil job spec: %w", backend.ErrMalformedSpec)
	}

	var receipt backend.Receipt
	if err := c.do(ctx, http.MethodPost, tasksEndpoint, spec, &receipt); err != nil {
		return nil, xerrors.Errorf("submit %s: %w", spec.Description, err)
	}
	return &receipt, nil
}

// ListTasks returns every task visible to the client's identity.
func (c *Client) ListTasks(ctx context.Context) ([]*backend.Task, error) {
	var res listTasksResponse
	if err := c.do(ctx, http.MethodGet, tasksEndpoint, nil, &res); err != nil {
		return nil, xerrors.Errorf("list tasks: %w", err)
	}
	return res.Tasks, nil
}

// ContainerExists returns true if an asset exists at path.
func (c *Client) ContainerExists(ctx context.Context, path string) (bool, error) {
	endpoint := assetsEndpoint + "?path=" + url.QueryEscape(path)
	err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if xerrors.Is(err, backend.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, xerrors.Errorf("lookup %s: %w", path, err)
	}
	return true, nil
}

// CreateContainer creates an empty container of the specified kind.
func (c *Client) CreateContainer(ctx context.Context, path string, kind backend.ContainerKind) error {
	req := containerRequest{Path: path, Kind: kind}
	if err := c.do(ctx, http.MethodPost, assetsEndpoint, req, nil); err != nil {
		return xerrors.Errorf("create container %s: %w", path, err)
	}
	return nil
}

// SetAccessPolicy replaces the ACL of the asset at path.
func (c *Client) SetAccessPolicy(ctx context.Context, path string, policy backend.AccessPolicy) error {
	req := accessPolicyRequest{Path: path, Policy: policy}
	if err := c.do(ctx, http.MethodPut, assetACLEndpoint, req, nil); err != nil {
		return xerrors.Errorf("set access policy %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if xerrors.As(err, &retrieveErr) {
			return xerrors.Errorf("token refresh rejected: %v: %w", retrieveErr, backend.ErrUnauthenticated)
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return xerrors.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(res.Body).Decode(&payload)
	return &RemoteError{
		Status:  res.StatusCode,
		Message: payload.Message,
		kind:    sentinelFor(res.StatusCode, payload.Code),
	}
}
