package checks

import (
	"context"

	"github.com/rs/zerolog/log"
)

// PasswordPolicyCheck scores the org-wide password policy. Scoring is
// additive across four sub-criteria, max 10:
//
//	+2 policy enabled
//	+2 minimum length 9-12, +4 minimum length above 12
//	+2 special character required
//	+2 two-factor required
type PasswordPolicyCheck struct{}

func (PasswordPolicyCheck) Name() string { return CheckPasswordPolicy }

func (PasswordPolicyCheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	setting, err := api.GetOrgSetting(ctx, target.OrgID)
	if err != nil {
		return Result{}, err
	}

	if setting.PasswordPolicy == nil {
		return Result{
			Score: 0,
			Findings: map[string]any{
				"policy": "no password policy is configured for this organization; define one under organization settings",
			},
		}, nil
	}

	policy := setting.PasswordPolicy
	score := 0
	findings := map[string]any{
		"enabled":            "",
		"min_length":         "",
		"special_characters": "",
		"two_factor":         "",
	}

	if policy.Enabled {
		score += 2
	} else {
		findings["enabled"] = "enable the password policy"
	}

	switch {
	case policy.MinLength > 12:
		score += 4
	case policy.MinLength > 8:
		score += 2
		findings["min_length"] = "raise the minimum password length above 12 characters"
	default:
		findings["min_length"] = "raise the minimum password length to at least 9 characters"
	}

	if policy.RequiresSpecialChar {
		score += 2
	} else {
		findings["special_characters"] = "require at least one special character"
	}

	if policy.RequiresTwoFactor {
		score += 2
	} else {
		findings["two_factor"] = "require two-factor authentication"
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("score", score).
		Msg("Password policy check complete")

	return Result{Score: score, Findings: findings}, nil
}
