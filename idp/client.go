package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const tenantAttribute = "tenant"

// Config holds the settings to reach the identity-provider admin API.
type Config struct {
	// ApiURL is the base URL of the admin REST API, e.g.
	// https://idp.example.com/admin/realms/classdesk
	ApiURL       string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

type apiClient struct {
	apiURL string
	hc     *http.Client
	tokens *tokenSource
}

// NewClient returns a Client backed by the provider admin REST API.
func NewClient(conf Config) Client {
	return &apiClient{
		apiURL: strings.TrimSuffix(conf.ApiURL, "/"),
		hc:     &http.Client{Timeout: 30 * time.Second},
		tokens: newTokenSource(conf.TokenURL, conf.ClientID, conf.ClientSecret),
	}
}

// providerUser is the provider wire representation of a user record.
type providerUser struct {
	ID          string               `json:"id,omitempty"`
	Username    string               `json:"username"`
	Enabled     bool                 `json:"enabled"`
	Attributes  map[string][]string  `json:"attributes,omitempty"`
	Credentials []providerCredential `json:"credentials,omitempty"`
}

type providerCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

func (u *providerUser) tenant() string {
	if vals := u.Attributes[tenantAttribute]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (u *providerUser) toUser() *User {
	return &User{ID: u.ID, Username: u.Username, Tenant: u.tenant()}
}

func (c *apiClient) CreateUser(ctx context.Context, tenant, username, password string) (*User, error) {
	payload := providerUser{
		Username:   username,
		Enabled:    true,
		Attributes: map[string][]string{tenantAttribute: {tenant}},
		Credentials: []providerCredential{
			{Type: "password", Value: password, Temporary: false},
		},
	}
	resp, err := c.do(ctx, "POST", "/users", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		userID, err := userIDFromLocation(resp.Header.Get("Location"))
		if err != nil {
			return nil, err
		}
		return &User{ID: userID, Username: username, Tenant: tenant}, nil
	case http.StatusConflict:
		return nil, ErrConflict
	default:
		return nil, unexpectedStatusErr(resp)
	}
}

func (c *apiClient) GetUser(ctx context.Context, userID string) (*User, error) {
	resp, err := c.do(ctx, "GET", fmt.Sprintf("/users/%s", url.PathEscape(userID)), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var u providerUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, errors.Wrap(err, "failed decoding user response")
		}
		return u.toUser(), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, unexpectedStatusErr(resp)
	}
}

func (c *apiClient) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.do(ctx, "DELETE", fmt.Sprintf("/users/%s", url.PathEscape(userID)), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return unexpectedStatusErr(resp)
	}
}

func (c *apiClient) SetUserPassword(ctx context.Context, userID, password string) error {
	payload := providerCredential{Type: "password", Value: password, Temporary: false}
	resp, err := c.do(ctx, "PUT", fmt.Sprintf("/users/%s/reset-password", url.PathEscape(userID)), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return unexpectedStatusErr(resp)
	}
}

func (c *apiClient) ListUsers(ctx context.Context, tenant string) ([]User, error) {
	uri := fmt.Sprintf("/users?q=%s", url.QueryEscape(tenantAttribute+":"+tenant))
	resp, err := c.do(ctx, "GET", uri, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatusErr(resp)
	}
	var providerUsers []providerUser
	if err := json.NewDecoder(resp.Body).Decode(&providerUsers); err != nil {
		return nil, errors.Wrap(err, "failed decoding user list response")
	}
	users := make([]User, 0, len(providerUsers))
	for _, u := range providerUsers {
		users = append(users, *u.toUser())
	}
	return users, nil
}

func (c *apiClient) CountUsers(ctx context.Context, tenant string) (int, error) {
	uri := fmt.Sprintf("/users/count?q=%s", url.QueryEscape(tenantAttribute+":"+tenant))
	resp, err := c.do(ctx, "GET", uri, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, unexpectedStatusErr(resp)
	}
	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, errors.Wrap(err, "failed decoding user count response")
	}
	return count, nil
}

// do performs an authenticated request against the admin API. A 401 response
// invalidates the cached token and the request is retried once with a fresh
// one.
func (c *apiClient) do(ctx context.Context, method, uri string, payload any) (*http.Response, error) {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.doWithToken(ctx, method, uri, payload, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.tokens.Invalidate(accessToken)
		accessToken, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		return c.doWithToken(ctx, method, uri, payload, accessToken)
	}
	return resp, nil
}

func (c *apiClient) doWithToken(ctx context.Context, method, uri string, payload any, accessToken string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed encoding request payload")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+uri, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed creating request %s %s", method, uri)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed performing request %s %s", method, uri)
	}
	return resp, nil
}

func userIDFromLocation(location string) (string, error) {
	if location == "" {
		return "", errors.New("provider response is missing the Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", errors.Wrap(err, "failed parsing Location header")
	}
	userID := path.Base(u.Path)
	if userID == "" || userID == "/" || userID == "." {
		return "", errors.Errorf("failed parsing user id from location %q", location)
	}
	return userID, nil
}

func unexpectedStatusErr(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.Errorf("provider returned unexpected status %v, body=%v",
		resp.StatusCode, string(data))
}
