// Package checks implements the six security posture evaluators.
//
// Every check is a pure function of remote state: it fetches what it needs
// through the RemoteState interface and reduces it to an integer score on a
// 0-10 scale plus structured findings keyed by stable identifiers (admin
// name, site id, device serial, SSID) so batches can be diffed.
package checks

import (
	"context"

	"github.com/madrow1/mist-security-extension/pkg/mist"
)

// RemoteState is the slice of the Mist API the checks consume.
// *mist.Client satisfies it.
type RemoteState interface {
	ListAdmins(ctx context.Context, orgID string) ([]mist.Admin, error)
	GetOrgSetting(ctx context.Context, orgID string) (*mist.OrgSetting, error)
	GetSiteSetting(ctx context.Context, siteID string) (*mist.SiteSetting, error)
	ListWLANs(ctx context.Context, orgID string) ([]mist.WLAN, error)
	ListSiteDevices(ctx context.Context, siteID string) ([]mist.Device, error)
}

// Target identifies what a check runs against
type Target struct {
	OrgID           string
	SiteIDs         []string
	SiteConcurrency int // fan-out bound for per-site device fetches
}

// Result is one check's outcome
type Result struct {
	Score    int            `json:"score"`
	Findings map[string]any `json:"findings"`
}

// Check scores one security dimension
type Check interface {
	Name() string
	Run(ctx context.Context, api RemoteState, target Target) (Result, error)
}

// Canonical check names, used as storage column prefixes and findings keys
const (
	CheckAdminMFA       = "admin"
	CheckSiteFirmware   = "site_firmware"
	CheckPasswordPolicy = "password_policy"
	CheckAPFirmware     = "ap_firmware"
	CheckWLAN           = "wlan"
	CheckSwitchFirmware = "switch_firmware"
)

// All returns the full check set in storage order
func All() []Check {
	return []Check{
		AdminMFACheck{},
		SiteFirmwareCheck{},
		PasswordPolicyCheck{},
		APFirmwareCheck{},
		WLANSecurityCheck{},
		SwitchFirmwareCheck{},
	}
}

// scaled converts a success/total ratio to the 0-10 scale. The floor after
// the percentage division keeps scores reproducible across check types.
func scaled(success, total int) int {
	if total <= 0 {
		return 0
	}

	score := (100 * success / total) / 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
