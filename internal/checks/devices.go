package checks

import (
	"context"
	"sync"

	"github.com/madrow1/mist-security-extension/pkg/mist"
	"github.com/rs/zerolog/log"
)

// collectDevices fetches every site's device inventory concurrently, bounded
// by the target's fan-out limit, keeps devices of the given type, and
// deduplicates by serial. It degrades only when every site fetch fails.
func collectDevices(ctx context.Context, api RemoteState, target Target, deviceType string) ([]mist.Device, error) {
	type siteResult struct {
		devices []mist.Device
		err     error
	}

	limit := target.SiteConcurrency
	if limit < 1 {
		limit = 1
	}

	resultCh := make(chan siteResult, len(target.SiteIDs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, siteID := range target.SiteIDs {
		wg.Add(1)
		go func(siteID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				resultCh <- siteResult{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			devices, err := api.ListSiteDevices(ctx, siteID)
			if err != nil {
				log.Warn().
					Str("site", siteID).
					Err(err).
					Msg("Failed to fetch site device inventory")
				resultCh <- siteResult{err: err}
				return
			}
			resultCh <- siteResult{devices: devices}
		}(siteID)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var (
		collected []mist.Device
		seen      = map[string]bool{}
		errs      int
		lastErr   error
	)

	for result := range resultCh {
		if result.err != nil {
			errs++
			lastErr = result.err
			continue
		}
		for _, device := range result.devices {
			if device.Type != deviceType || device.Serial == "" || seen[device.Serial] {
				continue
			}
			seen[device.Serial] = true
			collected = append(collected, device)
		}
	}

	if len(target.SiteIDs) > 0 && errs == len(target.SiteIDs) {
		return nil, lastErr
	}

	return collected, nil
}
