package mist

import "strings"

// Admin represents one organization administrator
type Admin struct {
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	TwoFactorVerified bool   `json:"two_factor_verified"`
}

// DisplayName returns "First Last", falling back to the email address
func (a Admin) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	if name == "" {
		return a.Email
	}
	return name
}

// Site represents one site under an organization
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AutoUpgrade is a site's firmware auto-upgrade setting block.
// A nil Enabled means the field was absent from the response.
type AutoUpgrade struct {
	Enabled *bool `json:"enabled"`
}

// SiteSetting represents the subset of a site's settings the checks consume
type SiteSetting struct {
	AutoUpgrade *AutoUpgrade `json:"auto_upgrade"`
}

// PasswordPolicy is the org-wide password policy block
type PasswordPolicy struct {
	Enabled             bool `json:"enabled"`
	MinLength           int  `json:"min_length"`
	RequiresSpecialChar bool `json:"requires_special_char"`
	RequiresTwoFactor   bool `json:"requires_two_factor"`
}

// OrgSetting represents the subset of org-wide settings the checks consume.
// PasswordPolicy is nil when the block is absent.
type OrgSetting struct {
	PasswordPolicy *PasswordPolicy `json:"password_policy"`
}

// WLANAuth is a WLAN's authentication block
type WLANAuth struct {
	Type string `json:"type"`
}

// WLANNAC is a WLAN's network access control block
type WLANNAC struct {
	Enabled bool `json:"enabled"`
}

// WLAN represents one organization WLAN
type WLAN struct {
	ID          string   `json:"id"`
	SSID        string   `json:"ssid"`
	Enabled     bool     `json:"enabled"`
	Auth        WLANAuth `json:"auth"`
	NAC         WLANNAC  `json:"mist_nac"`
	Isolation   bool     `json:"isolation"`
	L2Isolation bool     `json:"l2_isolation"`
}

// Device represents one device row from a site's device stats
type Device struct {
	Serial  string `json:"serial"`
	Model   string `json:"model"`
	Type    string `json:"type"` // "ap", "switch", "gateway"
	Version string `json:"version"`
}
