package domheal

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/domheal/internal/store"
)

// RegisterHTTP registers the snapshot and healing endpoints on a chi router.
func (h *Healer) RegisterHTTP(r chi.Router) {
	r.Route("/api/dom-snapshots", func(r chi.Router) {
		r.Post("/", h.handleSaveSnapshot)
		r.Get("/", h.handleListSnapshots)
		r.Delete("/expired", h.handleCleanup)
		r.Get("/{url}", h.handleLatestSnapshot)
		r.Get("/{url}/history", h.handleSnapshotHistory)
	})
	r.Route("/api/locator-healing", func(r chi.Router) {
		r.Post("/heal", h.handleHeal)
		r.Post("/trigger", h.handleTrigger)
		r.Get("/history", h.handleHealingHistory)
		r.Post("/history", h.handleRecordHealing)
		r.Get("/history/{test_script_id}", h.handleHealingHistoryByScript)
	})
}

type saveSnapshotRequest struct {
	URL       string          `json:"url"`
	DOMData   string          `json:"domData"`
	PageTitle string          `json:"pageTitle,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

func (h *Healer) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req saveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || req.DOMData == "" {
		writeError(w, http.StatusBadRequest, "url and domData are required")
		return
	}

	res, err := h.store.Save(r.Context(), store.SaveInput{
		URL:       req.URL,
		DOM:       req.DOMData,
		PageTitle: req.PageTitle,
		Metadata:  string(req.Metadata),
	})
	if err != nil {
		h.logger.Error("httpapi: save snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if res.Skipped {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"skipped": true,
			"reason":  res.Reason,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res,
	})
}

func (h *Healer) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	var (
		snapshots []*store.Snapshot
		err       error
	)
	if u := r.URL.Query().Get("normalized_url"); u != "" {
		snapshots, err = h.store.Recent(r.Context(), u, limit)
	} else {
		snapshots, err = h.store.ActiveSnapshots(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("httpapi: list snapshots failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snapshots,
		"count":   len(snapshots),
	})
}

func (h *Healer) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Latest(r.Context(), pathURL(r))
	if err != nil {
		h.logger.Error("httpapi: latest snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snap,
	})
}

func (h *Healer) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.History(r.Context(), pathURL(r), queryInt(r, "limit", 10))
	if err != nil {
		h.logger.Error("httpapi: snapshot history failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    history,
		"count":   len(history),
	})
}

func (h *Healer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.CleanupExpired(r.Context())
	if err != nil {
		h.logger.Error("httpapi: cleanup failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res,
	})
}

type healRequestBody struct {
	TestScriptID  string `json:"test_script_id,omitempty"`
	FailedLocator string `json:"failed_locator"`
	LocatorType   string `json:"locator_type,omitempty"`
	PageURL       string `json:"page_url"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
	CurrentDOM    string `json:"current_dom,omitempty"`
}

func (h *Healer) handleHeal(w http.ResponseWriter, r *http.Request) {
	var req healRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FailedLocator == "" || req.PageURL == "" {
		writeError(w, http.StatusBadRequest, "failed_locator and page_url are required")
		return
	}

	result, err := h.Heal(r.Context(), HealRequest{
		FailedLocator: req.FailedLocator,
		Dialect:       Dialect(req.LocatorType),
		PageURL:       req.PageURL,
		SnapshotID:    req.SnapshotID,
		CurrentDOM:    req.CurrentDOM,
	})
	if err != nil {
		h.logger.Error("httpapi: heal failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Error,
			"result":  result,
		})
		return
	}

	// The caller applies the healed locator itself; the record just keeps
	// the audit trail the patcher consults.
	if req.TestScriptID != "" {
		record := &store.HealingRecord{
			TestScriptID:  req.TestScriptID,
			FailedLocator: req.FailedLocator,
			HealedLocator: result.HealedLocator,
			HealingMethod: result.HealingMethod,
			SnapshotID:    result.SnapshotID,
			PageURL:       req.PageURL,
			Success:       true,
		}
		if err := h.store.RecordHealing(r.Context(), record); err != nil {
			h.logger.Warn("httpapi: record healing failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"healing_result": result,
	})
}

type triggerRequest struct {
	FailureInfo struct {
		FailedLocator string `json:"failed_locator"`
		LocatorType   string `json:"locator_type,omitempty"`
		PageURL       string `json:"page_url"`
		CurrentDOM    string `json:"current_dom,omitempty"`
	} `json:"failure_info"`
	TestFile     string `json:"test_file,omitempty"`
	TestFunction string `json:"test_function,omitempty"`
}

func (h *Healer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FailureInfo.FailedLocator == "" {
		writeError(w, http.StatusBadRequest, "failure_info.failed_locator is required")
		return
	}

	dialect := Dialect(req.FailureInfo.LocatorType)
	if dialect == "" {
		dialect = DialectPlaywright
	}
	result, err := h.Heal(r.Context(), HealRequest{
		FailedLocator: req.FailureInfo.FailedLocator,
		Dialect:       dialect,
		PageURL:       req.FailureInfo.PageURL,
		CurrentDOM:    req.FailureInfo.CurrentDOM,
	})
	if err != nil {
		h.logger.Error("httpapi: trigger heal failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           false,
			"error":             result.Error,
			"healing_attempted": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"healing_result": result,
	})
}

func (h *Healer) handleHealingHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.store.HealingHistory(r.Context(), store.HealingFilter{
		TestScriptID: q.Get("test_script_id"),
		TestCaseID:   q.Get("test_case_id"),
		Limit:        queryInt(r, "limit", 50),
	})
	if err != nil {
		h.logger.Error("httpapi: healing history failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    records,
	})
}

func (h *Healer) handleRecordHealing(w http.ResponseWriter, r *http.Request) {
	var record store.HealingRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if record.TestScriptID == "" || record.FailedLocator == "" || record.HealedLocator == "" {
		writeError(w, http.StatusBadRequest, "test_script_id, failed_locator and healed_locator are required")
		return
	}

	if err := h.store.RecordHealing(r.Context(), &record); err != nil {
		h.logger.Error("httpapi: record healing failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    record,
	})
}

func (h *Healer) handleHealingHistoryByScript(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.HealingHistory(r.Context(), store.HealingFilter{
		TestScriptID: chi.URLParam(r, "test_script_id"),
		Limit:        queryInt(r, "limit", 20),
	})
	if err != nil {
		h.logger.Error("httpapi: healing history failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    records,
	})
}

// pathURL extracts the percent-encoded target URL from the route.
func pathURL(r *http.Request) string {
	raw := chi.URLParam(r, "url")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   msg,
	})
}
