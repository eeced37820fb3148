package checks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AdminMFACheck scores the share of organization administrators with
// two-factor authentication verified.
type AdminMFACheck struct{}

func (AdminMFACheck) Name() string { return CheckAdminMFA }

func (AdminMFACheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	admins, err := api.ListAdmins(ctx, target.OrgID)
	if err != nil {
		return Result{}, err
	}

	findings := map[string]any{}

	if len(admins) == 0 {
		findings["note"] = "no administrators found for this organization"
		return Result{Score: 0, Findings: findings}, nil
	}

	withMFA := 0
	for _, admin := range admins {
		if admin.TwoFactorVerified {
			withMFA++
			continue
		}
		findings[admin.DisplayName()] = fmt.Sprintf(
			"enable two-factor authentication for %s", admin.Email)
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("admins", len(admins)).
		Int("with_mfa", withMFA).
		Msg("Admin MFA check complete")

	return Result{Score: scaled(withMFA, len(admins)), Findings: findings}, nil
}
