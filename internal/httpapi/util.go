package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeDecision returns a consent or guard decision. Refusals are not errors.
func writeDecision(w http.ResponseWriter, d models.Decision) {
	if d.OK() {
		writeJSON(w, http.StatusOK, Ok(d))
		return
	}
	writeJSON(w, http.StatusOK, Warn(d.Reason, d))
}

// statusFor maps domain errors onto HTTP statuses. Storage and unexpected
// errors never leak their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrConsentRequired):
		return http.StatusForbidden, models.ErrConsentRequired.Error()
	case errors.Is(err, models.ErrLastEmergencyContact):
		return http.StatusConflict, models.ErrLastEmergencyContact.Error()
	case errors.Is(err, models.ErrRequestNotPending), errors.Is(err, models.ErrCaregiverInactive):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrStorage):
		return http.StatusServiceUnavailable, models.ErrStorage.Error()
	default:
		return http.StatusInternalServerError, "internal error, please try again"
	}
}
