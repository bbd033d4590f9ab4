package models

import "errors"

// Domain error taxonomy. Callers distinguish these four conditions so the
// HTTP layer can map "doesn't exist" and "exists but forbidden" to distinct
// statuses instead of conflating them.
var (
	// ErrNotFound marks a missing template, response, or assignment.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden marks a caller lacking ownership or the admin role.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthenticated marks an operation that requires a logged-in caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrTemplateInactive marks a submission against a soft-disabled template.
	ErrTemplateInactive = errors.New("form not found or inactive")
	// ErrResponseLimitReached marks a submission rejected by the response cap.
	ErrResponseLimitReached = errors.New("maximum responses reached")
	// ErrEmailRequired marks an anonymous submission missing the respondent
	// email the template requires.
	ErrEmailRequired = errors.New("respondent email is required")
	// ErrAnonymousNotAllowed marks an unauthenticated submission against a
	// template that disallows anonymous access.
	ErrAnonymousNotAllowed = errors.New("anonymous responses are not allowed")
)
