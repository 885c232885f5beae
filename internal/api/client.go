package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the BaseSpace v1pre3 REST endpoint.
	DefaultBaseURL = "https://api.basespace.illumina.com/v1pre3"
	// DefaultResponseLimit is the page size requested for list endpoints.
	DefaultResponseLimit = 1024
	// DefaultRequestTimeout bounds metadata requests. File content is not bounded.
	DefaultRequestTimeout = 30 * time.Second

	accessTokenHeader = "x-access-token"
)

// Client talks to BaseSpace on behalf of a single account.
type Client struct {
	baseURL        string
	token          string
	http           *http.Client
	limit          int
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithResponseLimit sets the page size for list endpoints.
func WithResponseLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithRequestTimeout bounds every metadata request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

// NewClient creates a client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		token:          strings.TrimSpace(token),
		http:           &http.Client{},
		limit:          DefaultResponseLimit,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentUser returns the account the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var resp envelope[User]
	err := c.getJSON(ctx, "/users/current", nil, &resp)
	return resp.Response, err
}

// ListProjects returns every project visible to the account.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, c, "/users/current/projects")
}

// ListSamples returns the samples of a project.
func (c *Client) ListSamples(ctx context.Context, projectID string) ([]Sample, error) {
	return listAll[Sample](ctx, c, "/projects/"+url.PathEscape(projectID)+"/samples")
}

// ListSampleFiles returns the files attached to a sample.
func (c *Client) ListSampleFiles(ctx context.Context, sampleID string) ([]DataFile, error) {
	return listAll[DataFile](ctx, c, "/samples/"+url.PathEscape(sampleID)+"/files")
}

// OpenFileContent streams the content of a file. The caller closes the body.
// The returned length is -1 when the server does not announce it.
func (c *Client) OpenFileContent(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, "/files/"+url.PathEscape(fileID)+"/content", nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, 0, decodeError(resp)
	}
	return resp.Body, resp.ContentLength, nil
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	offset := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.limit))
		if offset > 0 {
			query.Set("offset", strconv.Itoa(offset))
		}

		var resp envelope[itemList[T]]
		if err := c.getJSON(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		page := resp.Response
		out = append(out, page.Items...)
		offset += len(page.Items)

		if len(page.Items) == 0 || len(page.Items) < c.limit || offset >= page.TotalCount {
			break
		}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(accessTokenHeader, c.token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.ResponseStatus.ErrorCode
		apiErr.Message = errResp.ResponseStatus.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
