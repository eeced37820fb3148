package checks

import (
	"context"

	"github.com/rs/zerolog/log"
)

// SiteFirmwareCheck scores the share of sites with firmware auto-upgrade
// enabled. The setting is tri-state: an absent auto_upgrade block counts as
// failing, the same as an explicit false.
type SiteFirmwareCheck struct{}

func (SiteFirmwareCheck) Name() string { return CheckSiteFirmware }

func (SiteFirmwareCheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	var (
		enabled int
		failing []string
		errs    int
		lastErr error
	)

	for _, siteID := range target.SiteIDs {
		setting, err := api.GetSiteSetting(ctx, siteID)
		if err != nil {
			// A single unreachable site still counts toward the
			// denominator; the whole check degrades only when every
			// site fetch fails.
			errs++
			lastErr = err
			failing = append(failing, siteID)
			continue
		}

		if setting.AutoUpgrade != nil && setting.AutoUpgrade.Enabled != nil && *setting.AutoUpgrade.Enabled {
			enabled++
		} else {
			failing = append(failing, siteID)
		}
	}

	if len(target.SiteIDs) > 0 && errs == len(target.SiteIDs) {
		return Result{}, lastErr
	}

	findings := map[string]any{}
	if len(failing) > 0 {
		findings["failing_sites"] = failing
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("sites", len(target.SiteIDs)).
		Int("auto_upgrade_enabled", enabled).
		Msg("Site firmware check complete")

	return Result{Score: scaled(enabled, len(target.SiteIDs)), Findings: findings}, nil
}
