package auth0

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/platinummonkey/grafana-sync/pkg/httputil"
)

// User is the subset of an Auth0 user record the sync consumes
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// Client is an authenticated Management API handle
type Client struct {
	baseURL    string
	httpClient *http.Client
	expiry     time.Time
}

func newClient(baseURL string, httpClient *http.Client, expiry time.Time) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		expiry:     expiry,
	}
}

// Expiry returns the token expiry reported by Auth0, zero if none was reported
func (c *Client) Expiry() time.Time {
	return c.expiry
}

// SearchUsers runs a Lucene user search, e.g. email:"bob@example.com"
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	params := url.Values{}
	params.Set("q", query)

	var users []User
	err := httputil.DoJSON(ctx, c.httpClient, httputil.Request{
		Service: ServiceName,
		Op:      "search users",
		Method:  http.MethodGet,
		URL:     c.baseURL + "/api/v2/users?" + params.Encode(),
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// EmailQuery matches users with exactly this email
func EmailQuery(email string) string {
	return fmt.Sprintf("email:%q", email)
}

// NicknameQuery matches users whose nickname is login
func NicknameQuery(login string) string {
	return fmt.Sprintf("nickname:%q", login)
}
