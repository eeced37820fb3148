package checks

import "testing"

func TestScaled_ZeroTotalIsZero(t *testing.T) {
	if got := scaled(0, 0); got != 0 {
		t.Fatalf("scaled(0, 0) = %d, want 0", got)
	}
	if got := scaled(5, 0); got != 0 {
		t.Fatalf("scaled(5, 0) = %d, want 0", got)
	}
}

func TestScaled_BoundedAndMonotonic(t *testing.T) {
	for total := 1; total <= 20; total++ {
		previous := -1
		for success := 0; success <= total; success++ {
			got := scaled(success, total)
			if got < 0 || got > 10 {
				t.Fatalf("scaled(%d, %d) = %d, out of [0,10]", success, total, got)
			}
			if got < previous {
				t.Fatalf("scaled(%d, %d) = %d decreased from %d", success, total, got, previous)
			}
			previous = got
		}
	}
}

func TestScaled_FloorsAfterPercentage(t *testing.T) {
	cases := []struct {
		success, total, want int
	}{
		{3, 4, 7},   // 75% -> 7, not 8
		{1, 3, 3},   // 33% -> 3
		{2, 3, 6},   // 66% -> 6
		{4, 4, 10},  // 100%
		{0, 7, 0},   // 0%
		{9, 10, 9},  // 90%
		{19, 20, 9}, // 95% -> 9, not 10
	}
	for _, tc := range cases {
		if got := scaled(tc.success, tc.total); got != tc.want {
			t.Errorf("scaled(%d, %d) = %d, want %d", tc.success, tc.total, got, tc.want)
		}
	}
}

func TestAll_ReturnsSixChecksInStorageOrder(t *testing.T) {
	all := All()
	want := []string{
		CheckAdminMFA, CheckSiteFirmware, CheckPasswordPolicy,
		CheckAPFirmware, CheckWLAN, CheckSwitchFirmware,
	}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d checks, want %d", len(all), len(want))
	}
	for i, check := range all {
		if check.Name() != want[i] {
			t.Errorf("check %d is %q, want %q", i, check.Name(), want[i])
		}
	}
}
