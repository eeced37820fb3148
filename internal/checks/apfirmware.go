package checks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// apFirmwareBaseline maps AP models to the recommended firmware version.
// Models outside the table have no recommended version and always count as
// out of date.
var apFirmwareBaseline = map[string]string{
	"AP33": "0.12.27139",
	"AP34": "0.14.29543",
	"AP43": "0.14.29543",
	"AP45": "0.14.29543",
	"AP63": "0.12.27139",
	"AP64": "0.14.29543",
}

// APFirmwareCheck scores the share of access points running the recommended
// firmware for their model, across all sites, deduplicated by serial.
type APFirmwareCheck struct{}

func (APFirmwareCheck) Name() string { return CheckAPFirmware }

func (APFirmwareCheck) Run(ctx context.Context, api RemoteState, target Target) (Result, error) {
	devices, err := collectDevices(ctx, api, target, "ap")
	if err != nil {
		return Result{}, err
	}

	findings := map[string]any{}
	compliant := 0

	for _, device := range devices {
		recommended, known := apFirmwareBaseline[device.Model]
		switch {
		case !known:
			findings[device.Serial] = fmt.Sprintf(
				"out of date, no recommended version for model %s", device.Model)
		case device.Version == recommended:
			compliant++
			findings[device.Serial] = "up to date"
		default:
			findings[device.Serial] = fmt.Sprintf(
				"out of date, recommended %s", recommended)
		}
	}

	log.Debug().
		Str("org", target.OrgID).
		Int("aps", len(devices)).
		Int("compliant", compliant).
		Msg("AP firmware check complete")

	return Result{Score: scaled(compliant, len(devices)), Findings: findings}, nil
}
