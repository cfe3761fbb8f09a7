package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

type handlers struct {
	deps   Deps
	logger *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func pathRunID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 100)

	runs, err := h.deps.Runs.Recent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*contracts.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handlers) latestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Runs.LatestSuccessful(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "no successful run found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathRunID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.deps.Runs.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handlers) listCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathRunID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	limit := queryLimit(r, 100, 500)

	candidates, err := h.deps.Candidates.ByRun(r.Context(), id, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list candidates")
		writeError(w, http.StatusInternalServerError, "failed to list candidates")
		return
	}
	if candidates == nil {
		candidates = []*contracts.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *handlers) listPicks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathRunID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	action := contracts.PickAction(strings.ToUpper(r.URL.Query().Get("action")))
	if action == "" {
		action = contracts.ActionCSP
	}
	if !action.Valid() {
		writeError(w, http.StatusBadRequest, "action must be CSP or CC")
		return
	}

	picks, err := h.deps.Picks.ByRun(r.Context(), id, action)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list picks")
		writeError(w, http.StatusInternalServerError, "failed to list picks")
		return
	}
	if picks == nil {
		picks = []*contracts.Pick{}
	}
	writeJSON(w, http.StatusOK, picks)
}
