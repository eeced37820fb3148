package checks

import (
	"context"
	"testing"

	"github.com/madrow1/mist-security-extension/pkg/mist"
)

func policyAPI(policy *mist.PasswordPolicy) *fakeAPI {
	return &fakeAPI{orgSetting: &mist.OrgSetting{PasswordPolicy: policy}}
}

func TestPasswordPolicy_AbsentScoresZeroWithSingleRecommendation(t *testing.T) {
	result, err := PasswordPolicyCheck{}.Run(context.Background(), policyAPI(nil), Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("score = %d, want 0", result.Score)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want a single explanatory recommendation", result.Findings)
	}
	if _, ok := result.Findings["policy"]; !ok {
		t.Fatalf("missing policy recommendation: %v", result.Findings)
	}
}

func TestPasswordPolicy_AdditiveScoring(t *testing.T) {
	cases := []struct {
		name   string
		policy mist.PasswordPolicy
		want   int
	}{
		{"everything off, short", mist.PasswordPolicy{MinLength: 8}, 0},
		{"enabled only", mist.PasswordPolicy{Enabled: true, MinLength: 8}, 2},
		{"mid length", mist.PasswordPolicy{Enabled: true, MinLength: 10}, 4},
		{"long length", mist.PasswordPolicy{Enabled: true, MinLength: 13}, 6},
		{"full marks", mist.PasswordPolicy{
			Enabled: true, MinLength: 16,
			RequiresSpecialChar: true, RequiresTwoFactor: true,
		}, 10},
		{"special and 2fa without policy", mist.PasswordPolicy{
			MinLength: 6, RequiresSpecialChar: true, RequiresTwoFactor: true,
		}, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := tc.policy
			result, err := PasswordPolicyCheck{}.Run(context.Background(), policyAPI(&policy), Target{OrgID: "org"})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if result.Score != tc.want {
				t.Fatalf("score = %d, want %d", result.Score, tc.want)
			}
		})
	}
}

func TestPasswordPolicy_EverySubCriterionAlwaysPresent(t *testing.T) {
	policy := &mist.PasswordPolicy{Enabled: true, MinLength: 16, RequiresSpecialChar: true, RequiresTwoFactor: true}
	result, err := PasswordPolicyCheck{}.Run(context.Background(), policyAPI(policy), Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, key := range []string{"enabled", "min_length", "special_characters", "two_factor"} {
		value, ok := result.Findings[key]
		if !ok {
			t.Fatalf("findings missing sub-criterion %q: %v", key, result.Findings)
		}
		if value != "" {
			t.Errorf("compliant sub-criterion %q carries recommendation %q, want empty", key, value)
		}
	}
}

func TestPasswordPolicy_MidLengthStillRecommendsLonger(t *testing.T) {
	policy := &mist.PasswordPolicy{Enabled: true, MinLength: 10}
	result, err := PasswordPolicyCheck{}.Run(context.Background(), policyAPI(policy), Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Findings["min_length"] == "" {
		t.Fatal("expected a min_length recommendation for length in 9-12")
	}
}
