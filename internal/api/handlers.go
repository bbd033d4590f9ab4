// Package api provides HTTP handlers for FormWeave endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/formweave/formweave/internal/forms"
	"github.com/formweave/formweave/internal/models"
)

// templatesHandler handles the template collection (GET, POST /templates).
func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.templatesHandler: processing request", "method", r.Method, "path", r.URL.Path)
	id := identityFromRequest(r)

	switch r.Method {
	case http.MethodGet:
		templates, err := s.templates.ListMine(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		slog.Debug("Server.templatesHandler: templates listed", "count", len(templates))
		writeJSONResponse(w, http.StatusOK, models.Success(templates))
	case http.MethodPost:
		var t models.Template
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			slog.Warn("Server.templatesHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		created, err := s.templates.Create(r.Context(), id, &t)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		slog.Info("Server.templatesHandler: template created", "template", created.ID, "owner", created.OwnerID)
		writeJSONResponse(w, http.StatusCreated, models.Created("Template created successfully", created))
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.templatesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// templateSubtreeHandler dispatches /templates/{id} and its sub-resources.
func (s *Server) templateSubtreeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	path := strings.TrimPrefix(r.URL.Path, "/templates/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown template endpoint"))
		return
	}

	// /templates/public is the browsing endpoint, not a template ID.
	if segments[0] == "public" && len(segments) == 1 {
		s.publicTemplatesHandler(w, r)
		return
	}

	templateID := segments[0]
	if len(segments) == 1 {
		s.templateHandler(w, r, templateID)
		return
	}
	if len(segments) == 2 {
		switch segments[1] {
		case "responses":
			s.templateResponsesHandler(w, r, templateID)
			return
		case "submit":
			s.submitHandler(w, r, templateID)
			return
		case "assign":
			s.assignHandler(w, r, templateID)
			return
		case "bulk-assign":
			s.bulkAssignHandler(w, r, templateID)
			return
		}
	}
	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown template endpoint"))
}

// publicTemplatesHandler handles GET /templates/public with search and pagination.
func (s *Server) publicTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	templates, total, err := s.templates.ListPublic(r.Context(), q.Get("search"), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Debug("Server.publicTemplatesHandler: public templates listed", "count", len(templates), "total", total)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"templates": templates,
		"total":     total,
	}))
}

// templateHandler handles GET, PUT, DELETE /templates/{id}.
func (s *Server) templateHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	slog.Debug("Server.templateHandler: processing request", "method", r.Method, "template", templateID)
	id := identityFromRequest(r)

	switch r.Method {
	case http.MethodGet:
		t, err := s.templates.Get(r.Context(), id, templateID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(t))
	case http.MethodPut:
		var patch forms.TemplateUpdate
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			slog.Warn("Server.templateHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		updated, err := s.templates.Update(r.Context(), id, templateID, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		slog.Info("Server.templateHandler: template updated", "template", templateID)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Template updated successfully", updated))
	case http.MethodDelete:
		if err := s.templates.Delete(r.Context(), id, templateID); err != nil {
			writeDomainError(w, err)
			return
		}
		slog.Info("Server.templateHandler: template deleted", "template", templateID)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Template deleted successfully", nil))
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		slog.Warn("Server.templateHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// templateResponsesHandler handles GET /templates/{id}/responses.
func (s *Server) templateResponsesHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	t, records, err := s.templates.Responses(r.Context(), id, templateID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Debug("Server.templateResponsesHandler: responses fetched", "template", templateID, "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"template":  t,
		"responses": records,
	}))
}

// submitRequest is the payload for POST /templates/{id}/submit.
type submitRequest struct {
	Values models.ValueMap `json:"values"`
	Email  string          `json:"email,omitempty"`
	Token  string          `json:"token,omitempty"`
}

// submitHandler handles POST /templates/{id}/submit. When a survey token is
// supplied the matching assignment is marked completed after the response is
// stored.
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.submitHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	record, err := s.templates.Submit(r.Context(), id, templateID, req.Values, req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Token != "" {
		if _, err := s.assignments.UpdateStatus(r.Context(), req.Token, models.AssignmentStatusCompleted); err != nil {
			// The response is already stored; a stale token must not fail the submission.
			slog.Warn("Server.submitHandler: failed to complete assignment", "error", err, "template", templateID)
		}
	}

	slog.Info("Server.submitHandler: response recorded", "template", templateID, "response", record.ID)
	writeJSONResponse(w, http.StatusCreated, models.Created("Response recorded successfully", record))
}

// assignRequest is the payload for POST /templates/{id}/assign.
type assignRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Invite bool   `json:"invite,omitempty"`
}

// assignHandler handles POST /templates/{id}/assign.
func (s *Server) assignHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.assignHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: userId"))
		return
	}

	a, created, err := s.assignments.Assign(r.Context(), id, templateID, req.UserID, req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Invite && created {
		if _, err := s.assignments.SendInvite(r.Context(), id, a.ID); err != nil {
			slog.Warn("Server.assignHandler: invitation delivery failed", "assignment", a.ID, "error", err)
			writeJSONResponse(w, http.StatusCreated, models.APIResponse{
				Status:  models.APIStatusCreated,
				Message: "Assignment created but invitation delivery failed",
				Result:  a,
			})
			return
		}
	}

	if !created {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("User already assigned", a))
		return
	}
	slog.Info("Server.assignHandler: form assigned", "template", templateID, "user", req.UserID)
	writeJSONResponse(w, http.StatusCreated, models.Created("Assignment created successfully", a))
}

// bulkAssignRequest is the payload for POST /templates/{id}/bulk-assign.
type bulkAssignRequest struct {
	Targets []forms.AssignmentTarget `json:"targets"`
}

// bulkAssignHandler handles POST /templates/{id}/bulk-assign.
func (s *Server) bulkAssignHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	var req bulkAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.bulkAssignHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(req.Targets) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: targets"))
		return
	}

	results, err := s.assignments.BulkAssign(r.Context(), id, templateID, req.Targets)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Info("Server.bulkAssignHandler: bulk assignment completed", "template", templateID, "targets", len(req.Targets))
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}

// assignmentsHandler handles GET /assignments (the caller's own assignments).
func (s *Server) assignmentsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.assignmentsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = id.UserID
	}
	assignments, err := s.assignments.ListForUser(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Debug("Server.assignmentsHandler: assignments listed", "user", userID, "count", len(assignments))
	writeJSONResponse(w, http.StatusOK, models.Success(assignments))
}

// assignmentSubtreeHandler dispatches /assignments/{id}/invite.
func (s *Server) assignmentSubtreeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	path := strings.TrimPrefix(r.URL.Path, "/assignments/")
	segments := strings.Split(strings.Trim(path, "/"), "/")

	if len(segments) == 2 && segments[1] == "invite" {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := identityFromRequest(r)
		a, err := s.assignments.SendInvite(r.Context(), id, segments[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		slog.Info("Server.assignmentSubtreeHandler: invitation sent", "assignment", a.ID)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Invitation sent successfully", a))
		return
	}
	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown assignment endpoint"))
}

// surveySubtreeHandler dispatches /surveys/{token} and /surveys/{token}/status.
func (s *Server) surveySubtreeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	path := strings.TrimPrefix(r.URL.Path, "/surveys/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown survey endpoint"))
		return
	}
	token := segments[0]

	if len(segments) == 1 {
		s.surveyHandler(w, r, token)
		return
	}
	if len(segments) == 2 && segments[1] == "status" {
		s.surveyStatusHandler(w, r, token)
		return
	}
	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown survey endpoint"))
}

// surveyHandler handles GET /surveys/{token}: it resolves the token to its
// assignment and template, marking a freshly sent assignment as opened.
func (s *Server) surveyHandler(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	a, t, err := s.assignments.ValidateToken(r.Context(), id, token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if a.Status == models.AssignmentStatusSent {
		if updated, err := s.assignments.UpdateStatus(r.Context(), token, models.AssignmentStatusOpened); err != nil {
			slog.Warn("Server.surveyHandler: failed to mark assignment opened", "assignment", a.ID, "error", err)
		} else {
			a = updated
		}
	}

	slog.Debug("Server.surveyHandler: token resolved", "assignment", a.ID, "template", t.ID)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"assignment": a,
		"template":   t,
	}))
}

// surveyStatusRequest is the payload for PATCH /surveys/{token}/status.
type surveyStatusRequest struct {
	Status models.AssignmentStatus `json:"status"`
}

// surveyStatusHandler handles PATCH /surveys/{token}/status.
func (s *Server) surveyStatusHandler(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPatch {
		w.Header().Set("Allow", http.MethodPatch)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req surveyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.surveyStatusHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	a, err := s.assignments.UpdateStatus(r.Context(), token, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.Info("Server.surveyStatusHandler: status updated", "assignment", a.ID, "status", a.Status)
	writeJSONResponse(w, http.StatusOK, models.Success(a))
}

// suggestFieldsRequest is the payload for POST /suggest-fields.
type suggestFieldsRequest struct {
	Description string `json:"description"`
}

// suggestFieldsHandler handles POST /suggest-fields using the GenAI client.
func (s *Server) suggestFieldsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := identityFromRequest(r)
	if !id.Authenticated {
		writeDomainError(w, models.ErrUnauthenticated)
		return
	}
	if s.gaClient == nil {
		slog.Warn("Server.suggestFieldsHandler: GenAI client not configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Field suggestions are not configured"))
		return
	}

	var req suggestFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.suggestFieldsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: description"))
		return
	}

	fields, err := s.gaClient.SuggestFields(r.Context(), req.Description)
	if err != nil {
		slog.Error("Server.suggestFieldsHandler: suggestion failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate field suggestions"))
		return
	}
	slog.Info("Server.suggestFieldsHandler: fields suggested", "count", len(fields))
	writeJSONResponse(w, http.StatusOK, models.Success(fields))
}
