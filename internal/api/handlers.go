package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/madrow1/mist-security-extension/internal/assessment"
	"github.com/rs/zerolog/log"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// orgIDFromQuery validates the org_id query parameter before anything else
// touches it. Invalid ids never reach the store or the remote API.
func orgIDFromQuery(w http.ResponseWriter, req *http.Request) (string, bool) {
	orgID := strings.TrimSpace(req.URL.Query().Get("org_id"))
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "missing org_id parameter")
		return "", false
	}
	if err := assessment.ValidateOrgID(orgID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization ID format")
		return "", false
	}
	return orgID, true
}

func (r *Router) handleCheckExistingData(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orgID, ok := orgIDFromQuery(w, req)
	if !ok {
		return
	}

	exists, err := r.store.HasOrganization(orgID)
	if err != nil {
		log.Error().Err(err).Str("org", orgID).Msg("Failed to check existing data")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

type onboardRequest struct {
	OrgID  string `json:"org_id"`
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

func (r *Router) handleOnboard(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body onboardRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	orgID := strings.TrimSpace(body.OrgID)
	if orgID == "" || strings.TrimSpace(body.APIKey) == "" || strings.TrimSpace(body.APIURL) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields: org_id, api_key, or api_url")
		return
	}

	exists, err := r.store.HasOrganization(orgID)
	if err == nil && exists {
		writeError(w, http.StatusConflict, "organization ID already exists")
		return
	}

	result, err := r.runner.Onboard(req.Context(), orgID, body.APIURL, body.APIKey)
	if err != nil {
		log.Error().Err(err).Str("org", orgID).Msg("Onboarding failed")
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"batch_id": result.BatchID,
		"sites":    result.SiteCount,
		"degraded": result.DegradedChecks,
	})
}

type refreshRequest struct {
	OrgID string `json:"org_id"`
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body refreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := r.runner.Refresh(req.Context(), body.OrgID)
	if err != nil {
		log.Error().Err(err).Str("org", body.OrgID).Msg("Refresh failed")
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"batch_id": result.BatchID,
		"sites":    result.SiteCount,
		"degraded": result.DegradedChecks,
	})
}

func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orgID, ok := orgIDFromQuery(w, req)
	if !ok {
		return
	}

	// Historical batches are reachable with an explicit batch_id.
	batchID := strings.TrimSpace(req.URL.Query().Get("batch_id"))

	var (
		records any
		err     error
	)
	if batchID != "" {
		records, err = r.store.GetBatch(orgID, batchID)
	} else {
		records, err = r.store.LatestBatch(orgID)
	}
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": records, "status": "success"})
}

func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orgID, ok := orgIDFromQuery(w, req)
	if !ok {
		return
	}

	summaries, err := r.store.History(orgID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": summaries, "status": "success"})
}

type purgeRequest struct {
	OrgID string `json:"org_id"`
}

func (r *Router) handlePurge(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body purgeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	orgID := strings.TrimSpace(body.OrgID)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "missing org_id parameter")
		return
	}
	if err := assessment.ValidateOrgID(orgID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization ID format")
		return
	}

	if err := r.store.PurgeOrganization(orgID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	log.Info().Str("org", orgID).Msg("Organization purged")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "API key purged successfully",
	})
}
