package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// IdentityProvider owns the login accounts behind users.auth0_id.
type IdentityProvider interface {
	DeleteUser(ctx context.Context, externalID string) error
}

type IdentityConfig struct {
	BaseURL      string // e.g. https://tenant.auth0.com
	TokenURL     string // defaults to BaseURL + /oauth/token
	ClientID     string
	ClientSecret string
	Audience     string // defaults to BaseURL + /api/v2/
}

// ManagementClient calls the identity provider's management API. The access
// token is fetched with the client-credentials grant and reused until it
// expires.
type ManagementClient struct {
	baseURL string
	client  *http.Client
}

func NewManagementClient(cfg IdentityConfig) *ManagementClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = base + "/oauth/token"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = base + "/api/v2/"
	}

	cc := &clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       tokenURL,
		EndpointParams: url.Values{"audience": {audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	// 令牌缓存在 token source 里，所有请求共用
	httpClient := &http.Client{Timeout: 15 * time.Second}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return &ManagementClient{
		baseURL: base,
		client:  oauth2.NewClient(ctx, cc.TokenSource(ctx)),
	}
}

func (c *ManagementClient) DeleteUser(ctx context.Context, externalID string) error {
	if externalID == "" {
		return validationError("identity provider user id is required")
	}

	endpoint := c.baseURL + "/api/v2/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete identity %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// 已经不存在，视为成功
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("delete identity %s: status %d: %s", externalID, resp.StatusCode, strings.TrimSpace(string(body)))
}
