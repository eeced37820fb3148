package checks

import (
	"context"

	"github.com/madrow1/mist-security-extension/pkg/mist"
	"github.com/rs/zerolog/log"
)

// WLANSecurityCheck evaluates four criteria per WLAN: non-open auth, NAC
// enabled, client isolation, and L2 isolation. Criteria from every enabled
// WLAN pool into one flat pass ratio; they are not averaged per WLAN.
// Disabled WLANs never count toward the score but still surface findings.
type WLANSecurityCheck struct{}

func (WLANSecurityCheck) Name() string { return CheckWLAN }

const criteriaPerWLAN = 4

func (WLANSecurityCheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	wlans, err := api.ListWLANs(ctx, target.OrgID)
	if err != nil {
		return Result{}, err
	}

	findings := map[string]any{}
	passed, total := 0, 0

	for _, wlan := range wlans {
		failures := evaluateWLAN(wlan)

		if wlan.Enabled {
			total += criteriaPerWLAN
			passed += criteriaPerWLAN - len(failures)
		}

		if len(failures) > 0 {
			findings[wlan.SSID] = failures
		}
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("wlans", len(wlans)).
		Int("criteria_passed", passed).
		Int("criteria_total", total).
		Msg("WLAN security check complete")

	return Result{Score: scaled(passed, total), Findings: findings}, nil
}

func evaluateWLAN(wlan mist.WLAN) map[string]string {
	failures := map[string]string{}

	if wlan.Auth.Type == "open" || wlan.Auth.Type == "" {
		failures["auth_type"] = "use an authenticated security type instead of an open network"
	}
	if !wlan.NAC.Enabled {
		failures["nac"] = "enable network access control"
	}
	if !wlan.Isolation {
		failures["client_isolation"] = "enable client isolation"
	}
	if !wlan.L2Isolation {
		failures["l2_isolation"] = "enable L2 isolation"
	}

	return failures
}
