package checks

import (
	"context"
	"testing"

	"github.com/madrow1/mist-security-extension/pkg/mist"
)

func secureWLAN(ssid string) mist.WLAN {
	return mist.WLAN{
		SSID:        ssid,
		Enabled:     true,
		Auth:        mist.WLANAuth{Type: "psk"},
		NAC:         mist.WLANNAC{Enabled: true},
		Isolation:   true,
		L2Isolation: true,
	}
}

func TestWLANSecurity_CriteriaPoolAcrossWLANs(t *testing.T) {
	open := mist.WLAN{SSID: "guest", Enabled: true, Auth: mist.WLANAuth{Type: "open"}}
	api := &fakeAPI{wlans: []mist.WLAN{secureWLAN("corp"), open}}

	result, err := WLANSecurityCheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// 4 of 8 pooled criteria pass: 50% -> 5. Not the per-WLAN average
	// (which would also be 5 here, so check a skewed set too below).
	if result.Score != 5 {
		t.Fatalf("score = %d, want 5", result.Score)
	}

	failures, ok := result.Findings["guest"].(map[string]string)
	if !ok {
		t.Fatalf("guest findings missing or wrong type: %v", result.Findings)
	}
	if len(failures) != 4 {
		t.Fatalf("guest failures = %v, want all four criteria", failures)
	}
	if _, ok := result.Findings["corp"]; ok {
		t.Fatalf("fully compliant WLAN should carry no findings: %v", result.Findings)
	}
}

func TestWLANSecurity_PoolingNotPerWLANAverage(t *testing.T) {
	// One WLAN passes 4/4, two pass 1/4: pooled is 6/12 = 50% -> 5.
	// Averaging per-WLAN scores (10, 2, 2) would floor to 4; pin the
	// pooled value.
	oneOfFour := func(ssid string) mist.WLAN {
		return mist.WLAN{SSID: ssid, Enabled: true, Auth: mist.WLANAuth{Type: "psk"}}
	}
	api := &fakeAPI{wlans: []mist.WLAN{secureWLAN("corp"), oneOfFour("lab"), oneOfFour("iot")}}

	result, err := WLANSecurityCheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 5 {
		t.Fatalf("score = %d, want 5 (pooled 6/12)", result.Score)
	}
}

func TestWLANSecurity_DisabledWLANExcludedFromScoreButReported(t *testing.T) {
	disabled := mist.WLAN{SSID: "legacy", Enabled: false, Auth: mist.WLANAuth{Type: "open"}}
	api := &fakeAPI{wlans: []mist.WLAN{secureWLAN("corp"), disabled}}

	result, err := WLANSecurityCheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 10 {
		t.Fatalf("score = %d, want 10 (disabled WLAN must not count)", result.Score)
	}
	if _, ok := result.Findings["legacy"]; !ok {
		t.Fatalf("disabled WLAN with failures should still surface findings: %v", result.Findings)
	}
}

func TestWLANSecurity_NoWLANsScoresZero(t *testing.T) {
	result, err := WLANSecurityCheck{}.Run(context.Background(), &fakeAPI{}, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("score = %d, want 0", result.Score)
	}
}

func TestWLANSecurity_MissingAuthTypeTreatedAsOpen(t *testing.T) {
	wlan := secureWLAN("corp")
	wlan.Auth.Type = ""
	api := &fakeAPI{wlans: []mist.WLAN{wlan}}

	result, err := WLANSecurityCheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	failures, _ := result.Findings["corp"].(map[string]string)
	if _, ok := failures["auth_type"]; !ok {
		t.Fatalf("missing auth type should fail the auth criterion: %v", result.Findings)
	}
}
