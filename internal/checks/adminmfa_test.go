package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/madrow1/mist-security-extension/pkg/mist"
)

func TestAdminMFA_ThreeOfFourScoresSeven(t *testing.T) {
	api := &fakeAPI{
		admins: []mist.Admin{
			{Email: "a@example.com", FirstName: "Ann", LastName: "Ames", TwoFactorVerified: true},
			{Email: "b@example.com", FirstName: "Bob", LastName: "Bell", TwoFactorVerified: true},
			{Email: "c@example.com", FirstName: "Cal", LastName: "Cole", TwoFactorVerified: true},
			{Email: "d@example.com", FirstName: "Dee", LastName: "Dunn", TwoFactorVerified: false},
		},
	}

	result, err := AdminMFACheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 7 {
		t.Fatalf("score = %d, want 7", result.Score)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want exactly the one non-MFA admin", result.Findings)
	}
	if _, ok := result.Findings["Dee Dunn"]; !ok {
		t.Fatalf("findings missing non-MFA admin: %v", result.Findings)
	}
}

func TestAdminMFA_NoAdminsScoresZeroWithNote(t *testing.T) {
	result, err := AdminMFACheck{}.Run(context.Background(), &fakeAPI{}, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("score = %d, want 0", result.Score)
	}
	if _, ok := result.Findings["note"]; !ok {
		t.Fatalf("expected explanatory note finding, got %v", result.Findings)
	}
}

func TestAdminMFA_AllVerifiedScoresTen(t *testing.T) {
	api := &fakeAPI{
		admins: []mist.Admin{
			{Email: "a@example.com", TwoFactorVerified: true},
			{Email: "b@example.com", TwoFactorVerified: true},
		},
	}

	result, err := AdminMFACheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Score != 10 {
		t.Fatalf("score = %d, want 10", result.Score)
	}
	if len(result.Findings) != 0 {
		t.Fatalf("expected no findings, got %v", result.Findings)
	}
}

func TestAdminMFA_UpstreamErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := AdminMFACheck{}.Run(context.Background(), &fakeAPI{adminsErr: wantErr}, Target{OrgID: "org"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
}

func TestAdminMFA_NamelessAdminKeyedByEmail(t *testing.T) {
	api := &fakeAPI{
		admins: []mist.Admin{{Email: "ops@example.com"}},
	}

	result, err := AdminMFACheck{}.Run(context.Background(), api, Target{OrgID: "org"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, ok := result.Findings["ops@example.com"]; !ok {
		t.Fatalf("expected finding keyed by email, got %v", result.Findings)
	}
}
