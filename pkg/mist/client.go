// Package mist is a read-only client for the Mist cloud management API.
//
// The client decodes every response into a typed view at this boundary so
// the check modules never re-derive field presence from raw maps. It
// performs no retries; retry policy belongs to the caller.
package mist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/madrow1/mist-security-extension/internal/errors"
	"github.com/rs/zerolog/log"
)

// Client is an authenticated Mist API client for one organization's credential
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientConfig holds configuration for the Mist client
type ClientConfig struct {
	BaseURL string // e.g. "api.mist.com" or "https://api.eu.mist.com"
	APIKey  string
	Timeout time.Duration
}

const defaultTimeout = 10 * time.Second

// NewClient creates a new Mist API client
func NewClient(cfg ClientConfig) (*Client, error) {
	host := strings.TrimSpace(cfg.BaseURL)
	if host == "" {
		return nil, apperrors.WrapValidationError("new_client", "", fmt.Errorf("api base url is required"))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.WrapValidationError("new_client", "", fmt.Errorf("api key is required"))
	}

	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(host, "/") + "/api/v1",
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// get performs a GET request and returns the response body.
// Non-2xx responses map to UpstreamUnavailable; auth failures to
// AuthenticationFailed.
func (c *Client) get(ctx context.Context, op, org, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeUpstream, op, org, err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	// Never log the token. The URL carries no credential material.
	log.Debug().Str("op", op).Str("url", req.URL.String()).Msg("Mist API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeUpstream, op, org, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeUpstream, op, org, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.WrapAuthError(op, org, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.WrapUpstreamError(op, org,
			fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode)
	}

	return body, nil
}

// decode unmarshals body into v, mapping shape errors to UpstreamMalformed
func decode(op, org string, body []byte, v any) error {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<") {
		// HTML error page instead of JSON
		return apperrors.WrapMalformedError(op, org, fmt.Errorf("expected JSON, got HTML"))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.WrapMalformedError(op, org, err)
	}
	return nil
}

// Validate performs one authenticated probe against the API. A non-200
// response means the supplied credentials or base URL are unusable.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.get(ctx, "validate", "", "/self")
	if err != nil {
		if apperrors.IsAuthError(err) {
			return err
		}
		return apperrors.WrapAuthError("validate", "", err)
	}
	return nil
}

// ListSites returns the organization's sites
func (c *Client) ListSites(ctx context.Context, orgID string) ([]Site, error) {
	body, err := c.get(ctx, "list_sites", orgID, "/orgs/"+orgID+"/sites")
	if err != nil {
		return nil, err
	}

	var sites []Site
	if err := decode("list_sites", orgID, body, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// ListAdmins returns the organization's administrators
func (c *Client) ListAdmins(ctx context.Context, orgID string) ([]Admin, error) {
	body, err := c.get(ctx, "list_admins", orgID, "/orgs/"+orgID+"/admins")
	if err != nil {
		return nil, err
	}

	var admins []Admin
	if err := decode("list_admins", orgID, body, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

// GetOrgSetting returns the organization-wide settings
func (c *Client) GetOrgSetting(ctx context.Context, orgID string) (*OrgSetting, error) {
	body, err := c.get(ctx, "get_org_setting", orgID, "/orgs/"+orgID+"/setting")
	if err != nil {
		return nil, err
	}

	var setting OrgSetting
	if err := decode("get_org_setting", orgID, body, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// ListWLANs returns the organization's WLANs
func (c *Client) ListWLANs(ctx context.Context, orgID string) ([]WLAN, error) {
	body, err := c.get(ctx, "list_wlans", orgID, "/orgs/"+orgID+"/wlans")
	if err != nil {
		return nil, err
	}

	var wlans []WLAN
	if err := decode("list_wlans", orgID, body, &wlans); err != nil {
		return nil, err
	}
	return wlans, nil
}

// GetSiteSetting returns one site's settings
func (c *Client) GetSiteSetting(ctx context.Context, siteID string) (*SiteSetting, error) {
	body, err := c.get(ctx, "get_site_setting", siteID, "/sites/"+siteID+"/setting")
	if err != nil {
		return nil, err
	}

	var setting SiteSetting
	if err := decode("get_site_setting", siteID, body, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// ListSiteDevices returns one site's device inventory with firmware versions
func (c *Client) ListSiteDevices(ctx context.Context, siteID string) ([]Device, error) {
	body, err := c.get(ctx, "list_site_devices", siteID, "/sites/"+siteID+"/stats/devices")
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := decode("list_site_devices", siteID, body, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}
