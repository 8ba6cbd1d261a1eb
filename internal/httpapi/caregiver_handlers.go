package httpapi

import (
	"net/http"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/permission"
)

func (r *Router) registerCaregiverRoutes() {
	r.handle("POST "+apiPrefix+"/caregivers", r.addCaregiver)
	r.handle("GET "+apiPrefix+"/caregivers", r.listCaregivers)
	r.handle("GET "+apiPrefix+"/caregivers/{id}", r.getCaregiver)
	r.handle("DELETE "+apiPrefix+"/caregivers/{id}", r.removeCaregiver)
	r.handle("POST "+apiPrefix+"/caregivers/{id}/permissions", r.requestPermission)
	r.handle("GET "+apiPrefix+"/caregivers/{id}/permissions/{permission}", r.hasPermission)
	r.handle("DELETE "+apiPrefix+"/caregivers/{id}/permissions/{permission}", r.revokePermission)
	r.handle("POST "+apiPrefix+"/caregivers/{id}/consent-review", r.consentReview)
	r.handle("POST "+apiPrefix+"/caregivers/{id}/behavior", r.logBehavior)
	r.handle("POST "+apiPrefix+"/caregivers/{id}/reinstate", r.reinstateCaregiver)
}

type addCaregiverBody struct {
	Name        string  `json:"name"`
	Contact     string  `json:"contact"`
	UserConsent bool    `json:"user_consent"`
	WitnessID   *string `json:"witness_id"`
}

func (r *Router) addCaregiver(w http.ResponseWriter, req *http.Request) {
	var body addCaregiverBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	d, err := r.svc.Permissions().AddCaregiver(req.Context(), permission.AddCaregiverRequest{
		Name:        body.Name,
		Contact:     body.Contact,
		UserConsent: body.UserConsent,
		WitnessID:   body.WitnessID,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

func (r *Router) listCaregivers(w http.ResponseWriter, req *http.Request) {
	includeRevoked := req.URL.Query().Get("include_revoked") == "true"
	list, err := r.svc.Permissions().ListCaregivers(req.Context(), includeRevoked)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": list, "total": len(list)}))
}

func (r *Router) getCaregiver(w http.ResponseWriter, req *http.Request) {
	c, err := r.svc.Permissions().GetCaregiver(req.Context(), req.PathValue("id"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

type removeCaregiverBody struct {
	Reason string `json:"reason"`
}

// removeCaregiver is the one-tap escape; it always succeeds for the user.
func (r *Router) removeCaregiver(w http.ResponseWriter, req *http.Request) {
	var body removeCaregiverBody
	_ = readBodyJSON(req, maxBodyBytes, &body)
	if body.Reason == "" {
		body.Reason = strings.TrimSpace(req.URL.Query().Get("reason"))
	}
	if body.Reason == "" {
		body.Reason = "removed by user"
	}

	id := req.PathValue("id")
	if err := r.svc.Permissions().RemoveCaregiver(req.Context(), id, body.Reason, true); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(models.Granted("caregiver removed")))
}

type permissionBody struct {
	Permission    string  `json:"permission"`
	UserConsent   bool    `json:"user_consent"`
	Justification string  `json:"justification"`
	WitnessID     *string `json:"witness_id"`
}

func (r *Router) requestPermission(w http.ResponseWriter, req *http.Request) {
	var body permissionBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	p, err := models.ParsePermission(body.Permission)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	d, err := r.svc.Permissions().RequestPermission(req.Context(), permission.PermissionRequest{
		CaregiverID:   req.PathValue("id"),
		Permission:    p,
		UserConsent:   body.UserConsent,
		Justification: body.Justification,
		WitnessID:     body.WitnessID,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

func (r *Router) hasPermission(w http.ResponseWriter, req *http.Request) {
	p, err := models.ParsePermission(req.PathValue("permission"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	granted := r.svc.Permissions().HasPermission(req.Context(), req.PathValue("id"), p)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"permission": p, "granted": granted}))
}

func (r *Router) revokePermission(w http.ResponseWriter, req *http.Request) {
	p, err := models.ParsePermission(req.PathValue("permission"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if err := r.svc.Permissions().RevokePermission(req.Context(), req.PathValue("id"), p, models.ActorUser); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"permission": p, "granted": false}))
}

type consentReviewBody struct {
	UserConsent bool     `json:"user_consent"`
	WitnessID   *string  `json:"witness_id"`
	Responses   []string `json:"responses"`
}

func (r *Router) consentReview(w http.ResponseWriter, req *http.Request) {
	var body consentReviewBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	d, err := r.svc.Permissions().ConductConsentReview(req.Context(), permission.ConsentReviewRequest{
		CaregiverID: req.PathValue("id"),
		UserConsent: body.UserConsent,
		WitnessID:   body.WitnessID,
		Responses:   body.Responses,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

type behaviorBody struct {
	ActionType   string `json:"action_type"`
	Context      string `json:"context"`
	UserResponse string `json:"user_response"`
}

func (r *Router) logBehavior(w http.ResponseWriter, req *http.Request) {
	var body behaviorBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	e, err := r.svc.LogCaregiverBehavior(req.Context(), req.PathValue("id"), strings.TrimSpace(body.ActionType), body.Context, body.UserResponse)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(e))
}

func (r *Router) reinstateCaregiver(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.Permissions().ReinstateCaregiver(req.Context(), req.PathValue("id"), models.ActorAdvocate); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(models.Granted("caregiver reinstated")))
}
