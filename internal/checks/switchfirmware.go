package checks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// switchFirmwareBaseline maps 8-character switch platform prefixes to the
// recommended Junos version.
var switchFirmwareBaseline = map[string]string{
	"EX2300-C": "21.4R3-S5",
	"EX3400-2": "21.4R3-S5",
	"EX4100-F": "22.4R3-S2",
	"EX4300-4": "21.4R3-S5",
	"EX4400-4": "22.4R3-S2",
}

const (
	switchPlatformPrefixLen = 8
	switchVersionCompareLen = 6
)

// SwitchFirmwareCheck scores the share of switches running the recommended
// firmware for their platform. Platforms match on the first 8 characters of
// the model; versions compare on their first 6 characters so service-release
// suffixes do not flag a compliant train.
type SwitchFirmwareCheck struct{}

func (SwitchFirmwareCheck) Name() string { return CheckSwitchFirmware }

func (SwitchFirmwareCheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	devices, err := collectDevices(ctx, api, target, "switch")
	if err != nil {
		return Result{}, err
	}

	findings := map[string]any{}
	compliant := 0

	for _, device := range devices {
		recommended, known := switchFirmwareBaseline[platformPrefix(device.Model)]
		switch {
		case !known:
			findings[device.Serial] = fmt.Sprintf(
				"out of date, no recommended version for platform %s", device.Model)
		case truncateVersion(device.Version) == truncateVersion(recommended):
			compliant++
			findings[device.Serial] = "up to date"
		default:
			findings[device.Serial] = fmt.Sprintf(
				"out of date, recommended %s", recommended)
		}
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("switches", len(devices)).
		Int("compliant", compliant).
		Msg("Switch firmware check complete")

	return Result{Score: scaled(compliant, len(devices)), Findings: findings}, nil
}

func platformPrefix(model string) string {
	if len(model) > switchPlatformPrefixLen {
		return model[:switchPlatformPrefixLen]
	}
	return model
}

func truncateVersion(version string) string {
	if len(version) > switchVersionCompareLen {
		return version[:switchVersionCompareLen]
	}
	return version
}
