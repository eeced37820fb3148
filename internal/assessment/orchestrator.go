// Package assessment orchestrates posture runs: authenticate, enumerate
// sites, fan out the check modules, aggregate, persist one batch.
package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrow1/mist-security-extension/internal/checks"
	"github.com/madrow1/mist-security-extension/internal/config"
	"github.com/madrow1/mist-security-extension/internal/crypto"
	apperrors "github.com/madrow1/mist-security-extension/internal/errors"
	"github.com/madrow1/mist-security-extension/internal/store"
	"github.com/madrow1/mist-security-extension/pkg/mist"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Stage names one step of the run state machine
type Stage string

const (
	StageIdle             Stage = "idle"
	StageAuthenticating   Stage = "authenticating"
	StageEnumeratingSites Stage = "enumerating_sites"
	StageRunningChecks    Stage = "running_checks"
	StageAggregating      Stage = "aggregating"
	StagePersisting       Stage = "persisting"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// batchIDLayout formats batch ids as lexically sortable UTC timestamps
const batchIDLayout = "20060102150405"

// RunResult reports a completed assessment run
type RunResult struct {
	BatchID        string   `json:"batch_id"`
	SiteCount      int      `json:"site_count"`
	AverageScore   float64  `json:"average_score"`
	DegradedChecks []string `json:"degraded_checks,omitempty"`
}

// Runner drives assessments for onboarded organizations
type Runner struct {
	store   *store.Store
	crypto  *crypto.Manager
	cfg     *config.Provider
	metrics *Metrics
	checks  []checks.Check
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(st *store.Store, cm *crypto.Manager, cfg *config.Provider, metrics *Metrics) *Runner {
	return &Runner{
		store:   st,
		crypto:  cm,
		cfg:     cfg,
		metrics: metrics,
		checks:  checks.All(),
	}
}

// ValidateOrgID rejects anything but a 36-character UUID string
func ValidateOrgID(orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if len(orgID) != 36 {
		return apperrors.WrapValidationError("validate_org_id", orgID,
			fmt.Errorf("organization id must be a 36-character UUID"))
	}
	if _, err := uuid.Parse(orgID); err != nil {
		return apperrors.WrapValidationError("validate_org_id", orgID,
			fmt.Errorf("organization id is not a valid UUID: %w", err))
	}
	return nil
}

// ValidateAPIKey rejects plainly malformed keys before any remote call
func ValidateAPIKey(apiKey string) error {
	if len(strings.TrimSpace(apiKey)) < 10 {
		return apperrors.WrapValidationError("validate_api_key", "",
			fmt.Errorf("api key must be at least 10 characters"))
	}
	return nil
}

// Onboard validates credentials for a new organization, enumerates its
// sites from the Mist API, persists the credential, and runs the first
// assessment. No partial write occurs when authentication fails.
func (r *Runner) Onboard(ctx context.Context, orgID, apiBaseURL, apiKey string) (*RunResult, error) {
	orgID = strings.TrimSpace(orgID)
	if err := ValidateOrgID(orgID); err != nil {
		return nil, err
	}
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}

	exists, err := r.store.HasOrganization(orgID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.WrapValidationError("onboard", orgID,
			fmt.Errorf("organization already onboarded"))
	}

	client, err := mist.NewClient(mist.ClientConfig{
		BaseURL: apiBaseURL,
		APIKey:  apiKey,
		Timeout: r.cfg.Current().RemoteTimeout,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("org", orgID).Str("stage", string(StageAuthenticating)).Msg("Onboarding organization")
	if err := client.Validate(ctx); err != nil {
		return nil, err
	}

	log.Info().Str("org", orgID).Str("stage", string(StageEnumeratingSites)).Msg("Enumerating sites")
	sites, err := client.ListSites(ctx, orgID)
	if err != nil {
		return nil, err
	}

	siteIDs := make([]string, 0, len(sites))
	for _, site := range sites {
		if site.ID != "" {
			siteIDs = append(siteIDs, site.ID)
		}
	}
	if len(siteIDs) == 0 {
		return nil, apperrors.WrapValidationError("onboard", orgID,
			fmt.Errorf("organization has no sites"))
	}

	keyEnc, err := r.crypto.EncryptString(apiKey)
	if err != nil {
		return nil, apperrors.WrapPersistenceError("encrypt_credential", orgID, err)
	}

	org := store.Organization{
		OrgID:      orgID,
		APIBaseURL: apiBaseURL,
		APIKeyEnc:  keyEnc,
		SiteIDs:    siteIDs,
	}
	if err := r.store.SaveOrganization(org); err != nil {
		return nil, err
	}

	return r.run(ctx, &org, client)
}

// Refresh re-assesses an onboarded organization. Site ids come from the
// stored list, not a fresh enumeration; re-onboard to pick up site changes.
func (r *Runner) Refresh(ctx context.Context, orgID string) (*RunResult, error) {
	orgID = strings.TrimSpace(orgID)
	if err := ValidateOrgID(orgID); err != nil {
		return nil, err
	}

	org, err := r.store.GetOrganization(orgID)
	if err != nil {
		return nil, err
	}

	apiKey, err := r.crypto.DecryptString(org.APIKeyEnc)
	if err != nil {
		return nil, apperrors.WrapPersistenceError("decrypt_credential", orgID, err)
	}

	client, err := mist.NewClient(mist.ClientConfig{
		BaseURL: org.APIBaseURL,
		APIKey:  apiKey,
		Timeout: r.cfg.Current().RemoteTimeout,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("org", orgID).Str("stage", string(StageAuthenticating)).Msg("Refreshing assessment")
	if err := client.Validate(ctx); err != nil {
		return nil, err
	}

	return r.run(ctx, org, client)
}

// run executes the check fan-out, aggregation, and batch persist. Module
// failures never abort the run; they record a zero score with an error
// finding so the average stays defined over all six checks.
func (r *Runner) run(ctx context.Context, org *store.Organization, client *mist.Client) (result *RunResult, err error) {
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		r.metrics.observeRun(status, time.Since(started).Seconds())
	}()

	batchID := time.Now().UTC().Format(batchIDLayout)
	// Two runs inside the same second would mint the same id; advance past
	// the stored maximum so batch ids stay strictly increasing per org.
	if latest, latestErr := r.store.LatestBatchID(org.OrgID); latestErr == nil && batchID <= latest {
		parsed, parseErr := time.Parse(batchIDLayout, latest)
		if parseErr != nil {
			return nil, apperrors.WrapPersistenceError("mint_batch_id", org.OrgID, parseErr)
		}
		batchID = parsed.Add(time.Second).Format(batchIDLayout)
	}

	target := checks.Target{
		OrgID:           org.OrgID,
		SiteIDs:         org.SiteIDs,
		SiteConcurrency: r.cfg.Current().SiteConcurrency,
	}

	log.Info().
		Str("org", org.OrgID).
		Str("batch", batchID).
		Int("sites", len(org.SiteIDs)).
		Str("stage", string(StageRunningChecks)).
		Msg("Running checks")

	results := make([]checks.Result, len(r.checks))
	var degraded []string

	g, gctx := errgroup.WithContext(ctx)
	degradedCh := make(chan string, len(r.checks))
	for i, check := range r.checks {
		i, check := i, check
		g.Go(func() error {
			res, runErr := check.Run(gctx, client, target)
			if runErr != nil {
				// Zero-score fallback: the one place module failures
				// are absorbed.
				log.Warn().
					Str("org", org.OrgID).
					Str("check", check.Name()).
					Err(runErr).
					Msg("Check degraded to zero score")
				results[i] = checks.Result{
					Score: 0,
					Findings: map[string]any{
						"error":    runErr.Error(),
						"degraded": true,
					},
				}
				degradedCh <- check.Name()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}
	close(degradedCh)
	for name := range degradedCh {
		degraded = append(degraded, name)
	}
	r.metrics.observeDegraded(len(degraded))

	// Aggregating: unweighted mean of the six integer scores.
	sum := 0
	checkResults := make(map[string]store.CheckResult, len(r.checks))
	for i, check := range r.checks {
		sum += results[i].Score
		findings := results[i].Findings
		if findings == nil {
			findings = map[string]any{}
		}
		checkResults[check.Name()] = store.CheckResult{
			Score:    results[i].Score,
			Findings: findings,
		}
	}
	average := float64(sum) / float64(len(r.checks))

	records := make([]store.Record, 0, len(org.SiteIDs))
	for _, siteID := range org.SiteIDs {
		records = append(records, store.Record{
			OrgID:        org.OrgID,
			SiteID:       siteID,
			BatchID:      batchID,
			Checks:       checkResults,
			AverageScore: average,
		})
	}

	log.Info().
		Str("org", org.OrgID).
		Str("batch", batchID).
		Float64("average_score", average).
		Str("stage", string(StagePersisting)).
		Msg("Persisting batch")

	if err := r.store.WriteBatch(ctx, org.OrgID, batchID, records); err != nil {
		return nil, err
	}

	return &RunResult{
		BatchID:        batchID,
		SiteCount:      len(records),
		AverageScore:   average,
		DegradedChecks: degraded,
	}, nil
}
