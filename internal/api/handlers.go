package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mmrzaf/rowgen/internal/app"
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
)

type Handler struct {
	scenarioRepo scenarios.Repository
	targetRepo   targets.Repository
	runService   *app.RunService
}

func NewHandler(scenarioRepo scenarios.Repository, targetRepo targets.Repository, runService *app.RunService) *Handler {
	return &Handler{
		scenarioRepo: scenarioRepo,
		targetRepo:   targetRepo,
		runService:   runService,
	}
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := h.scenarioRepo.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scenarioRepo.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runService.Providers())
}

// Targets: database-backed CRUD, file targets readable. DSNs are redacted on
// output.

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	list, err := h.runService.Targets().List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets.RedactTargets(list))
}

func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := h.runService.Targets().Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets.RedactTarget(t))
}

func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var t domain.TargetConfig
	if err := decodeJSONStrict(r, &t); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.runService.Validator().ValidateTarget(&t); err != nil {
		writeError(w, err)
		return
	}
	if err := h.targetRepo.Create(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, targets.RedactTarget(&t))
}

func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var t domain.TargetConfig
	if err := decodeJSONStrict(r, &t); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if t.ID != "" && t.ID != id {
		http.Error(w, "id mismatch", http.StatusBadRequest)
		return
	}
	t.ID = id
	if err := h.runService.Validator().ValidateTarget(&t); err != nil {
		writeError(w, err)
		return
	}
	if err := h.targetRepo.Update(&t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets.RedactTarget(&t))
}

func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.targetRepo.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestTarget reports the check even when the target is unreachable.
func (h *Handler) TestTarget(w http.ResponseWriter, r *http.Request) {
	res, err := h.runService.TestTarget(r.Context(), r.PathValue("id"))
	if res != nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeError(w, err)
}

func (h *Handler) ListTargetChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.targetRepo.ListChecks(r.PathValue("id"), queryLimit(r, 20, 200))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

// Runs

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	run, err := h.runService.StartRun(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) PlanRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	plan, err := h.runService.PlanRun(&req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runService.ListRuns(queryLimit(r, 50, 500), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runService.GetRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.runService.ListRunLogs(r.PathValue("id"), queryLimit(r, 200, 2000))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryLimit(r *http.Request, def, max int) int {
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

// statusOf maps error codes onto HTTP statuses. Uncoded errors are internal.
func statusOf(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrConfiguration, errors.ErrDependencyCycle, errors.ErrUnsupportedOperation, errors.ErrArgumentResolution:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
