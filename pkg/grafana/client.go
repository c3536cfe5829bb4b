package grafana

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/httputil"
)

// ServiceName tags every error raised by this package
const ServiceName = "grafana"

// orgIDHeader scopes a request to an org independently of the active org
const orgIDHeader = "X-Grafana-Org-Id"

// defaultPageSize is used when paging through /api/users
const defaultPageSize = 1000

// Config holds the connection settings for a Grafana instance
type Config struct {
	URL      string
	Username string
	Password string
	// Transport is the base round tripper, http.DefaultTransport when nil
	Transport http.RoundTripper
	Timeout   time.Duration
	// PageSize for user listing, defaults to 1000
	PageSize int
}

// Client is a basic-auth Grafana API handle
type Client struct {
	baseURL    string
	username   string
	httpClient *http.Client
	pageSize   int
}

// NewClient creates a new Grafana client
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("grafana URL is required")
	}
	if config.Username == "" {
		return nil, fmt.Errorf("grafana username is required")
	}

	base := config.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:  strings.TrimRight(config.URL, "/"),
		username: config.Username,
		httpClient: &http.Client{
			Transport: &basicAuthTransport{
				username: config.Username,
				password: config.Password,
				base:     base,
			},
			Timeout: config.Timeout,
		},
		pageSize: pageSize,
	}, nil
}

// Username returns the account the client authenticates as
func (c *Client) Username() string {
	return c.username
}

// ListOrgs returns every org visible to the account
func (c *Client) ListOrgs(ctx context.Context) ([]Org, error) {
	var orgs []Org
	if err := c.do(ctx, "list orgs", http.MethodGet, "/api/orgs", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// ListUsers returns every user of the instance, following pagination
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var all []User
	for page := 1; ; page++ {
		path := fmt.Sprintf("/api/users?perpage=%d&page=%d", c.pageSize, page)

		var users []User
		if err := c.do(ctx, "list users", http.MethodGet, path, nil, nil, &users); err != nil {
			return nil, err
		}
		all = append(all, users...)

		if len(users) < c.pageSize {
			return all, nil
		}
	}
}

// UpdateUser replaces a user's name, login and email
func (c *Client) UpdateUser(ctx context.Context, id int64, update UserUpdate) error {
	return c.do(ctx, "update user", http.MethodPut, "/api/users/"+strconv.FormatInt(id, 10), update, nil, nil)
}

// UpdateOrg renames an org
func (c *Client) UpdateOrg(ctx context.Context, id int64, update OrgUpdate) error {
	return c.do(ctx, "update org", http.MethodPut, "/api/orgs/"+strconv.FormatInt(id, 10), update, nil, nil)
}

// AddOrgUser adds loginOrEmail to the org with role
func (c *Client) AddOrgUser(ctx context.Context, orgID int64, loginOrEmail, role string) error {
	body := AddOrgUserRequest{LoginOrEmail: loginOrEmail, Role: role}
	return c.do(ctx, "add org user", http.MethodPost, fmt.Sprintf("/api/orgs/%d/users", orgID), body, nil, nil)
}

// SwitchActiveOrg makes orgID the account's active org
func (c *Client) SwitchActiveOrg(ctx context.Context, orgID int64) (ActiveOrg, error) {
	if err := c.do(ctx, "switch active org", http.MethodPost, fmt.Sprintf("/api/user/using/%d", orgID), nil, nil, nil); err != nil {
		return ActiveOrg{}, err
	}
	return ActiveOrg{id: orgID}, nil
}

// ListDatasources lists the datasources of the active org
func (c *Client) ListDatasources(ctx context.Context, org ActiveOrg) ([]Datasource, error) {
	var datasources []Datasource
	if err := c.do(ctx, "list datasources", http.MethodGet, "/api/datasources", nil, org.header(), &datasources); err != nil {
		return nil, err
	}
	return datasources, nil
}

// CreateDatasource creates a datasource in the active org
func (c *Client) CreateDatasource(ctx context.Context, org ActiveOrg, req CreateDatasourceRequest) (*CreateDatasourceResponse, error) {
	var resp CreateDatasourceResponse
	if err := c.do(ctx, "create datasource", http.MethodPost, "/api/datasources", req, org.header(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, header http.Header, dest interface{}) error {
	return httputil.DoJSON(ctx, c.httpClient, httputil.Request{
		Service: ServiceName,
		Op:      op,
		Method:  method,
		URL:     c.baseURL + path,
		Body:    body,
		Header:  header,
	}, dest)
}

func (a ActiveOrg) header() http.Header {
	return http.Header{orgIDHeader: []string{strconv.FormatInt(a.id, 10)}}
}

// basicAuthTransport adds basic auth credentials to every request
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}
