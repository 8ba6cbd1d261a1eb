package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func (r *Router) registerFlagRoutes() {
	r.handle("GET "+apiPrefix+"/flags", r.listFlags)
	r.handle("POST "+apiPrefix+"/flags/{id}/resolve", r.resolveFlag)
	r.handle("GET "+apiPrefix+"/risk", r.riskAssessment)
	r.handle("GET "+apiPrefix+"/audit/verify", r.verifyAudit)
	r.handle("GET "+apiPrefix+"/audit/export", r.exportAudit)
}

func (r *Router) listFlags(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var filters models.FlagFilters
	if v := strings.TrimSpace(q.Get("caregiver_id")); v != "" {
		filters.CaregiverID = &v
	}
	if v := strings.TrimSpace(q.Get("severity")); v != "" {
		sev := models.Severity(strings.ToUpper(v))
		if sev.Rank() == 0 {
			r.badRequest(w, fmt.Sprintf("invalid severity: %s", v))
			return
		}
		filters.Severity = &sev
	}
	if v := strings.TrimSpace(q.Get("flag_type")); v != "" {
		ft := models.FlagType(strings.ToUpper(v))
		filters.FlagType = &ft
	}
	if v := strings.TrimSpace(q.Get("since")); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			r.badRequest(w, "since must be RFC 3339")
			return
		}
		filters.Since = &since
	}
	filters.Unresolved = q.Get("unresolved") == "true"

	flags, err := r.svc.ListFlags(req.Context(), filters)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": flags, "total": len(flags)}))
}

type resolveBody struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes"`
}

func (r *Router) resolveFlag(w http.ResponseWriter, req *http.Request) {
	var body resolveBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	f, err := r.svc.ResolveFlag(req.Context(), req.PathValue("id"), strings.TrimSpace(body.ResolvedBy), body.Notes)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (r *Router) riskAssessment(w http.ResponseWriter, req *http.Request) {
	ra, err := r.svc.RiskAssessment(req.Context(), strings.TrimSpace(req.URL.Query().Get("caregiver_id")))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(ra))
}

func (r *Router) verifyAudit(w http.ResponseWriter, req *http.Request) {
	report, err := r.svc.VerifyAudit(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

func (r *Router) exportAudit(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="guardian-audit.xlsx"`)
	if err := r.svc.ExportAudit(req.Context(), w); err != nil {
		r.logger.Error("Failed to export audit workbook", zap.Error(err))
	}
}
