package api

import (
	"errors"
	"net/http"

	"github.com/formweave/formweave/internal/forms"
	"github.com/formweave/formweave/internal/models"
)

// Identity headers set by the authenticating reverse proxy. The API trusts
// these headers; anything that terminates authentication must strip
// client-supplied copies before forwarding.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// identityFromRequest builds the caller's identity from the gateway headers.
// A request without a user ID header is anonymous.
func identityFromRequest(r *http.Request) models.Identity {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		return models.Anonymous()
	}
	role := models.RoleUser
	if r.Header.Get(HeaderUserRole) == string(models.RoleAdmin) {
		role = models.RoleAdmin
	}
	return models.Identity{
		UserID:        userID,
		Email:         r.Header.Get(HeaderUserEmail),
		Role:          role,
		Authenticated: true,
	}
}

// writeDomainError maps domain errors onto HTTP status codes and writes the
// standard error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		writeJSONResponse(w, http.StatusBadRequest, models.APIResponse{
			Status:  models.APIStatusError,
			Message: verr.Error(),
			Result:  verr.Fields,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrResponseLimitReached),
		errors.Is(err, models.ErrTemplateInactive):
		status = http.StatusConflict
	case errors.Is(err, models.ErrEmailRequired),
		errors.Is(err, models.ErrAnonymousNotAllowed),
		errors.Is(err, models.ErrInvalidAssignmentStatus),
		errors.Is(err, models.ErrTemplateInvalid):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak internal details to clients.
		msg = "Internal server error"
	}
	writeJSONResponse(w, status, models.Error(msg))
}
