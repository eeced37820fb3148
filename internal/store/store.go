// Package store persists organizations and their assessment history.
//
// Assessment rows are append-only: one row per (org, site, batch), written
// in a single transaction per batch and never updated. The latest posture
// for an org is the row set under its maximum batch id.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/madrow1/mist-security-extension/internal/errors"
	_ "modernc.org/sqlite"
)

// checkNames lists the six check dimensions in storage column order
var checkNames = []string{
	"admin",
	"site_firmware",
	"password_policy",
	"ap_firmware",
	"wlan",
	"switch_firmware",
}

// CheckNames returns the six check dimensions in storage column order
func CheckNames() []string {
	out := make([]string, len(checkNames))
	copy(out, checkNames)
	return out
}

// CheckResult is one check's stored score and findings
type CheckResult struct {
	Score    int            `json:"score"`
	Findings map[string]any `json:"findings"`
}

// Record is one site's assessment in one batch
type Record struct {
	OrgID        string                 `json:"org_id"`
	SiteID       string                 `json:"site_id"`
	BatchID      string                 `json:"batch_id"`
	Checks       map[string]CheckResult `json:"checks"`
	AverageScore float64                `json:"average_score"`
	CreatedAt    time.Time              `json:"created_at"`
}

// BatchSummary is one batch's aggregate view for history queries
type BatchSummary struct {
	BatchID      string             `json:"batch_id"`
	Scores       map[string]float64 `json:"scores"`
	AverageScore float64            `json:"average_score"`
	SiteCount    int                `json:"site_count"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Organization is the stored credential and site list for one org
type Organization struct {
	OrgID      string    `json:"org_id"`
	APIBaseURL string    `json:"api_base_url"`
	APIKeyEnc  string    `json:"-"`
	SiteIDs    []string  `json:"site_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists organizations and assessment batches in SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// New opens or creates the assessment store at path
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open assessment db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db, dbPath: path}
	if err := store.initSchema(); err != nil {
		wrappedInitErr := fmt.Errorf("initialize assessment store schema for %q: %w", path, err)
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Join(
				wrappedInitErr,
				fmt.Errorf("close assessment db %q after init failure: %w", path, closeErr),
			)
		}
		return nil, wrappedInitErr
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organizations (
		org_id TEXT PRIMARY KEY,
		api_base_url TEXT NOT NULL,
		api_key_enc TEXT NOT NULL,
		site_ids TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessments (
		org_id TEXT NOT NULL REFERENCES organizations(org_id) ON DELETE CASCADE,
		site_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		admin_score INTEGER NOT NULL,
		admin_findings TEXT NOT NULL,
		site_firmware_score INTEGER NOT NULL,
		site_firmware_findings TEXT NOT NULL,
		password_policy_score INTEGER NOT NULL,
		password_policy_findings TEXT NOT NULL,
		ap_firmware_score INTEGER NOT NULL,
		ap_firmware_findings TEXT NOT NULL,
		wlan_score INTEGER NOT NULL,
		wlan_findings TEXT NOT NULL,
		switch_firmware_score INTEGER NOT NULL,
		switch_firmware_findings TEXT NOT NULL,
		average_score REAL NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (org_id, site_id, batch_id)
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_org_batch ON assessments(org_id, batch_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize assessment store schema: %w", err)
	}
	return nil
}

// SaveOrganization stores a new organization's credential and site list.
// Credentials are never updated in place; purge and re-onboard instead.
func (s *Store) SaveOrganization(org Organization) error {
	if org.OrgID == "" {
		return apperrors.WrapValidationError("save_organization", "", fmt.Errorf("org id required"))
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}

	siteIDs, err := json.Marshal(org.SiteIDs)
	if err != nil {
		return apperrors.WrapPersistenceError("save_organization", org.OrgID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO organizations (org_id, api_base_url, api_key_enc, site_ids, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, org.OrgID, org.APIBaseURL, org.APIKeyEnc, string(siteIDs), org.CreatedAt)
	if err != nil {
		return apperrors.WrapPersistenceError("save_organization", org.OrgID, err)
	}
	return nil
}

// GetOrganization loads one organization's stored credential and site list
func (s *Store) GetOrganization(orgID string) (*Organization, error) {
	var (
		org      Organization
		siteJSON string
	)
	err := s.db.QueryRow(`
		SELECT org_id, api_base_url, api_key_enc, site_ids, created_at
		FROM organizations WHERE org_id = ?
	`, orgID).Scan(&org.OrgID, &org.APIBaseURL, &org.APIKeyEnc, &siteJSON, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "get_organization", orgID,
			fmt.Errorf("organization not found"))
	}
	if err != nil {
		return nil, apperrors.WrapPersistenceError("get_organization", orgID, err)
	}

	if err := json.Unmarshal([]byte(siteJSON), &org.SiteIDs); err != nil {
		return nil, apperrors.WrapPersistenceError("get_organization", orgID, err)
	}
	return &org, nil
}

// HasOrganization reports whether an organization is onboarded
func (s *Store) HasOrganization(orgID string) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM organizations WHERE org_id = ?`, orgID).Scan(&count); err != nil {
		return false, apperrors.WrapPersistenceError("has_organization", orgID, err)
	}
	return count > 0, nil
}

// PurgeOrganization deletes an organization, cascading to its whole
// assessment history.
func (s *Store) PurgeOrganization(orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM organizations WHERE org_id = ?`, orgID)
	if err != nil {
		return apperrors.WrapPersistenceError("purge_organization", orgID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.WrapPersistenceError("purge_organization", orgID, err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.ErrorTypeNotFound, "purge_organization", orgID,
			fmt.Errorf("organization not found"))
	}
	return nil
}

// validateRecord enforces the completeness invariant: all six scores present
// and in [0,10] for every row carrying an average.
func validateRecord(record Record) error {
	for _, name := range checkNames {
		result, ok := record.Checks[name]
		if !ok {
			return fmt.Errorf("record for site %s missing check %q", record.SiteID, name)
		}
		if result.Score < 0 || result.Score > 10 {
			return fmt.Errorf("record for site %s has out-of-range %s score %d",
				record.SiteID, name, result.Score)
		}
	}
	return nil
}

// WriteBatch persists every record of one batch in a single transaction.
// A failure on any row rolls back the whole batch.
func (s *Store) WriteBatch(ctx context.Context, orgID, batchID string, records []Record) (err error) {
	if batchID == "" {
		return apperrors.WrapValidationError("write_batch", orgID, fmt.Errorf("batch id required"))
	}
	for _, record := range records {
		if err := validateRecord(record); err != nil {
			return apperrors.WrapValidationError("write_batch", orgID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapPersistenceError("write_batch", orgID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback batch %s: %w", batchID, rbErr))
			}
		}
	}()

	now := time.Now().UTC()
	for _, record := range records {
		args := []any{orgID, record.SiteID, batchID}
		for _, name := range checkNames {
			result := record.Checks[name]
			findings, marshalErr := json.Marshal(result.Findings)
			if marshalErr != nil {
				err = apperrors.WrapPersistenceError("write_batch", orgID, marshalErr)
				return err
			}
			args = append(args, result.Score, string(findings))
		}
		args = append(args, record.AverageScore, now)

		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO assessments (
				org_id, site_id, batch_id,
				admin_score, admin_findings,
				site_firmware_score, site_firmware_findings,
				password_policy_score, password_policy_findings,
				ap_firmware_score, ap_firmware_findings,
				wlan_score, wlan_findings,
				switch_firmware_score, switch_firmware_findings,
				average_score, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...); execErr != nil {
			err = apperrors.WrapPersistenceError("write_batch", orgID, execErr)
			return err
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = apperrors.WrapPersistenceError("write_batch", orgID, commitErr)
		return err
	}
	return nil
}

const recordColumns = `
	org_id, site_id, batch_id,
	admin_score, admin_findings,
	site_firmware_score, site_firmware_findings,
	password_policy_score, password_policy_findings,
	ap_firmware_score, ap_firmware_findings,
	wlan_score, wlan_findings,
	switch_firmware_score, switch_firmware_findings,
	average_score, created_at`

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record   Record
		scores   [6]int
		findings [6]string
	)

	dest := []any{&record.OrgID, &record.SiteID, &record.BatchID}
	for i := range checkNames {
		dest = append(dest, &scores[i], &findings[i])
	}
	dest = append(dest, &record.AverageScore, &record.CreatedAt)

	if err := rows.Scan(dest...); err != nil {
		return Record{}, fmt.Errorf("scan assessment row: %w", err)
	}

	record.Checks = make(map[string]CheckResult, len(checkNames))
	for i, name := range checkNames {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(findings[i]), &parsed); err != nil {
			return Record{}, fmt.Errorf("parse %s findings for site %s: %w", name, record.SiteID, err)
		}
		record.Checks[name] = CheckResult{Score: scores[i], Findings: parsed}
	}
	return record, nil
}

func (s *Store) queryRecords(query string, args ...any) (records []Record, err error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			wrappedCloseErr := fmt.Errorf("close assessment rows: %w", closeErr)
			if err != nil {
				err = errors.Join(err, wrappedCloseErr)
				return
			}
			err = wrappedCloseErr
		}
	}()

	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate assessment rows: %w", rowsErr)
	}
	return records, nil
}

// GetBatch returns every record of one batch
func (s *Store) GetBatch(orgID, batchID string) ([]Record, error) {
	records, err := s.queryRecords(`
		SELECT `+recordColumns+` FROM assessments
		WHERE org_id = ? AND batch_id = ? ORDER BY site_id
	`, orgID, batchID)
	if err != nil {
		return nil, apperrors.WrapPersistenceError("get_batch", orgID, err)
	}
	return records, nil
}

// LatestBatchID resolves the maximum batch id for an org. Resolution is by
// id value, not insertion order.
func (s *Store) LatestBatchID(orgID string) (string, error) {
	var batchID sql.NullString
	err := s.db.QueryRow(`
		SELECT MAX(batch_id) FROM assessments WHERE org_id = ?
	`, orgID).Scan(&batchID)
	if err != nil {
		return "", apperrors.WrapPersistenceError("latest_batch_id", orgID, err)
	}
	if !batchID.Valid {
		return "", apperrors.New(apperrors.ErrorTypeNotFound, "latest_batch_id", orgID,
			fmt.Errorf("no assessments for organization"))
	}
	return batchID.String, nil
}

// LatestBatch returns the record set under the maximum batch id for an org
func (s *Store) LatestBatch(orgID string) ([]Record, error) {
	batchID, err := s.LatestBatchID(orgID)
	if err != nil {
		return nil, err
	}
	return s.GetBatch(orgID, batchID)
}

// History returns per-batch aggregate scores in batch id order, oldest first
func (s *Store) History(orgID string) (summaries []BatchSummary, err error) {
	rows, err := s.db.Query(`
		SELECT batch_id,
			AVG(admin_score), AVG(site_firmware_score), AVG(password_policy_score),
			AVG(ap_firmware_score), AVG(wlan_score), AVG(switch_firmware_score),
			AVG(average_score), COUNT(*), MIN(created_at)
		FROM assessments WHERE org_id = ?
		GROUP BY batch_id ORDER BY batch_id
	`, orgID)
	if err != nil {
		return nil, apperrors.WrapPersistenceError("history", orgID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			wrappedCloseErr := fmt.Errorf("close history rows: %w", closeErr)
			if err != nil {
				err = errors.Join(err, wrappedCloseErr)
				return
			}
			err = wrappedCloseErr
		}
	}()

	for rows.Next() {
		var (
			summary BatchSummary
			scores  [6]float64
		)
		if scanErr := rows.Scan(&summary.BatchID,
			&scores[0], &scores[1], &scores[2], &scores[3], &scores[4], &scores[5],
			&summary.AverageScore, &summary.SiteCount, &summary.CreatedAt); scanErr != nil {
			return nil, apperrors.WrapPersistenceError("history", orgID,
				fmt.Errorf("scan history row: %w", scanErr))
		}
		summary.Scores = make(map[string]float64, len(checkNames))
		for i, name := range checkNames {
			summary.Scores[name] = scores[i]
		}
		summaries = append(summaries, summary)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.WrapPersistenceError("history", orgID,
			fmt.Errorf("iterate history rows: %w", rowsErr))
	}
	return summaries, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close assessment db %q: %w", s.dbPath, err)
		}
	}
	return nil
}
