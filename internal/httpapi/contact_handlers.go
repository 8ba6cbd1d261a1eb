package httpapi

import (
	"net/http"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/contacts"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func (r *Router) registerContactRoutes() {
	r.handle("GET "+apiPrefix+"/contacts", r.listContacts)
	r.handle("POST "+apiPrefix+"/contacts", r.userAddContact)
	r.handle("DELETE "+apiPrefix+"/contacts/{id}", r.userRemoveContact)
	r.handle("POST "+apiPrefix+"/contacts/{id}/caregiver-remove", r.caregiverRemoveContact)
	r.handle("POST "+apiPrefix+"/contacts/{id}/caregiver-block", r.caregiverBlockContact)
	r.handle("GET "+apiPrefix+"/contacts/requests", r.listContactRequests)
	r.handle("POST "+apiPrefix+"/contacts/requests", r.requestContactAddition)
	r.handle("POST "+apiPrefix+"/contacts/requests/{id}/respond", r.respondToRequest)
	r.handle("POST "+apiPrefix+"/contacts/requests/{id}/cancel", r.cancelRequest)
}

func (r *Router) listContacts(w http.ResponseWriter, req *http.Request) {
	list, err := r.svc.Contacts().ListContacts(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": list, "total": len(list)}))
}

type userContactBody struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	Emergency    bool   `json:"emergency"`
}

func (r *Router) userAddContact(w http.ResponseWriter, req *http.Request) {
	var body userContactBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	d, err := r.svc.Contacts().UserAddContact(req.Context(), contacts.UserContact{
		Name:         body.Name,
		Phone:        body.Phone,
		Relationship: body.Relationship,
		Emergency:    body.Emergency,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

func (r *Router) userRemoveContact(w http.ResponseWriter, req *http.Request) {
	confirmed := req.URL.Query().Get("confirm") == "true"
	d, err := r.svc.Contacts().UserRemoveContact(req.Context(), req.PathValue("id"), confirmed)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

type caregiverBody struct {
	CaregiverID string `json:"caregiver_id"`
}

func (r *Router) caregiverID(w http.ResponseWriter, req *http.Request) (string, bool) {
	var body caregiverBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return "", false
	}
	id := strings.TrimSpace(body.CaregiverID)
	if id == "" {
		r.badRequest(w, "caregiver_id is required")
		return "", false
	}
	return id, true
}

func (r *Router) caregiverRemoveContact(w http.ResponseWriter, req *http.Request) {
	cg, ok := r.caregiverID(w, req)
	if !ok {
		return
	}
	writeDecision(w, r.svc.Contacts().BlockContactRemoval(req.Context(), cg, req.PathValue("id")))
}

func (r *Router) caregiverBlockContact(w http.ResponseWriter, req *http.Request) {
	cg, ok := r.caregiverID(w, req)
	if !ok {
		return
	}
	writeDecision(w, r.svc.Contacts().BlockContactBlocking(req.Context(), cg, req.PathValue("id")))
}

func (r *Router) listContactRequests(w http.ResponseWriter, req *http.Request) {
	list, err := r.svc.Contacts().ListPendingRequests(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": list, "total": len(list)}))
}

type contactRequestBody struct {
	CaregiverID  string `json:"caregiver_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	Reason       string `json:"reason"`
}

func (r *Router) requestContactAddition(w http.ResponseWriter, req *http.Request) {
	var body contactRequestBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	d, err := r.svc.Contacts().RequestContactAddition(req.Context(), contacts.ContactAdditionRequest{
		CaregiverID:  strings.TrimSpace(body.CaregiverID),
		Name:         body.Name,
		Phone:        body.Phone,
		Relationship: body.Relationship,
		Reason:       body.Reason,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

type respondBody struct {
	Approve bool `json:"approve"`
}

func (r *Router) respondToRequest(w http.ResponseWriter, req *http.Request) {
	var body respondBody
	if err := readBodyJSON(req, maxBodyBytes, &body); err != nil {
		r.badRequest(w, "invalid body")
		return
	}
	d, err := r.svc.Contacts().RespondToPendingRequest(req.Context(), req.PathValue("id"), body.Approve)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeDecision(w, d)
}

func (r *Router) cancelRequest(w http.ResponseWriter, req *http.Request) {
	cg, ok := r.caregiverID(w, req)
	if !ok {
		return
	}
	if err := r.svc.Contacts().CancelPendingRequest(req.Context(), req.PathValue("id"), cg); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"request_id": req.PathValue("id"), "status": models.RequestCancelled}))
}
