// Package forms implements the transport-independent services behind the
// form endpoints: template lifecycle with ownership checks, response
// submission with cap enforcement, and assignment handling with invitation
// delivery.
package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/formweave/formweave/internal/models"
	"github.com/formweave/formweave/internal/schema"
	"github.com/formweave/formweave/internal/store"
	"github.com/formweave/formweave/internal/util"
)

// ValidationError carries the per-field messages of a rejected submission.
// It is always recoverable: the caller corrects the values and retries.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// TemplateService owns the template lifecycle and submissions.
type TemplateService struct {
	store store.Store
}

// NewTemplateService creates a TemplateService backed by the given store.
func NewTemplateService(st store.Store) *TemplateService {
	return &TemplateService{store: st}
}

// Create validates and persists a new template owned by the caller.
func (s *TemplateService) Create(ctx context.Context, id models.Identity, t *models.Template) (*models.Template, error) {
	if !id.Authenticated {
		return nil, models.ErrUnauthenticated
	}
	if err := t.ValidateForSave(); err != nil {
		slog.Debug("TemplateService.Create: validation failed", "error", err)
		return nil, err
	}

	now := time.Now()
	t.ID = util.GenerateTemplateID()
	t.OwnerID = id.UserID
	t.IsActive = true
	t.ResponseCount = 0
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.store.SaveTemplate(t); err != nil {
		slog.Error("TemplateService.Create: save failed", "error", err)
		return nil, err
	}
	slog.Info("TemplateService.Create: template created", "template", t.ID, "owner", t.OwnerID)
	return t, nil
}

// Get returns a template the caller may view: public templates, the owner's
// own, or any template for an admin. Missing templates and forbidden access
// stay distinct conditions.
func (s *TemplateService) Get(ctx context.Context, id models.Identity, templateID string) (*models.Template, error) {
	t, err := s.store.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, models.ErrNotFound
	}
	if !t.CanView(id) {
		return nil, models.ErrForbidden
	}
	return t, nil
}

// TemplateUpdate is a partial change to an existing template. Nil fields are
// left untouched. MaxResponses is raw JSON so an absent key, an explicit
// null (clear the cap), and a number stay distinguishable.
type TemplateUpdate struct {
	Title          *string                  `json:"title,omitempty"`
	Description    *string                  `json:"description,omitempty"`
	Fields         []models.FieldDefinition `json:"fields,omitempty"`
	IsActive       *bool                    `json:"isActive,omitempty"`
	IsPublic       *bool                    `json:"isPublic,omitempty"`
	AllowAnonymous *bool                    `json:"allowAnonymous,omitempty"`
	MaxResponses   json.RawMessage          `json:"maxResponses,omitempty"`
}

// Update merges a partial change into an existing template. Only the owner or
// an admin may mutate it; ownership, response count, creation time, and every
// setting the patch omits are preserved.
func (s *TemplateService) Update(ctx context.Context, id models.Identity, templateID string, patch TemplateUpdate) (*models.Template, error) {
	existing, err := s.store.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, models.ErrNotFound
	}
	if !existing.CanEdit(id) {
		return nil, models.ErrForbidden
	}

	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Fields != nil {
		existing.Fields = patch.Fields
	}
	if patch.IsActive != nil {
		existing.IsActive = *patch.IsActive
	}
	if patch.IsPublic != nil {
		existing.IsPublic = *patch.IsPublic
	}
	if patch.AllowAnonymous != nil {
		existing.AllowAnonymous = *patch.AllowAnonymous
	}
	if len(patch.MaxResponses) > 0 {
		if string(patch.MaxResponses) == "null" {
			existing.MaxResponses = nil
		} else {
			var limit int
			if err := json.Unmarshal(patch.MaxResponses, &limit); err != nil {
				return nil, fmt.Errorf("%w: maxResponses must be a number or null", models.ErrTemplateInvalid)
			}
			existing.MaxResponses = &limit
		}
	}

	if err := existing.ValidateForSave(); err != nil {
		slog.Debug("TemplateService.Update: validation failed", "template", templateID, "error", err)
		return nil, err
	}
	existing.UpdatedAt = time.Now()

	if err := s.store.SaveTemplate(existing); err != nil {
		slog.Error("TemplateService.Update: save failed", "template", templateID, "error", err)
		return nil, err
	}
	slog.Info("TemplateService.Update: template updated", "template", templateID)
	return existing, nil
}

// Delete hard-deletes a template and all of its responses. Only the owner or
// an admin may delete.
func (s *TemplateService) Delete(ctx context.Context, id models.Identity, templateID string) error {
	t, err := s.store.GetTemplate(templateID)
	if err != nil {
		return err
	}
	if t == nil {
		return models.ErrNotFound
	}
	if !t.CanEdit(id) {
		return models.ErrForbidden
	}
	if err := s.store.DeleteTemplate(templateID); err != nil {
		slog.Error("TemplateService.Delete: delete failed", "template", templateID, "error", err)
		return err
	}
	slog.Info("TemplateService.Delete: template deleted", "template", templateID)
	return nil
}

// ListMine returns the caller's own templates, newest first.
func (s *TemplateService) ListMine(ctx context.Context, id models.Identity) ([]models.Template, error) {
	if !id.Authenticated {
		return nil, models.ErrUnauthenticated
	}
	return s.store.ListTemplates(id.UserID)
}

// ListPublic returns active public templates for browsing, with search and
// pagination. The second return is the total match count.
func (s *TemplateService) ListPublic(ctx context.Context, search string, page, limit int) ([]models.Template, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.store.ListPublicTemplates(search, page, limit)
}

// Responses returns a template together with all of its submitted responses.
// Visibility follows the same rule as Get.
func (s *TemplateService) Responses(ctx context.Context, id models.Identity, templateID string) (*models.Template, []models.ResponseRecord, error) {
	t, err := s.Get(ctx, id, templateID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.store.ListResponses(templateID)
	if err != nil {
		return nil, nil, err
	}
	return t, records, nil
}

// Submit accepts one filled-out value map against a template. It enforces,
// in order: template existence and active state, the anonymous-access rules,
// full schema validation of every visible field, and the response cap via the
// store's single atomic conditional increment. The cap slot is reserved
// before the insert so two racing submissions can never both pass the cap;
// a crash after reservation leaves the count one high, never an extra stored
// response beyond the cap.
func (s *TemplateService) Submit(ctx context.Context, id models.Identity, templateID string, values models.ValueMap, respondentEmail string) (*models.ResponseRecord, error) {
	t, err := s.store.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, models.ErrNotFound
	}
	if !t.IsActive {
		return nil, models.ErrTemplateInactive
	}

	if !id.Authenticated {
		if !t.AllowAnonymous {
			return nil, models.ErrAnonymousNotAllowed
		}
		if respondentEmail == "" {
			return nil, models.ErrEmailRequired
		}
	}
	if respondentEmail == "" {
		respondentEmail = id.Email
	}

	errs := make(map[string]string)
	for _, page := range schema.Paginate(t.Fields) {
		for key, msg := range schema.ValidatePage(page, values) {
			errs[key] = msg
		}
	}
	if len(errs) > 0 {
		slog.Debug("TemplateService.Submit: validation failed", "template", templateID, "errors", len(errs))
		return nil, &ValidationError{Fields: errs}
	}

	ok, err := s.store.TryIncrementResponseCount(templateID)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Debug("TemplateService.Submit: response cap reached", "template", templateID)
		return nil, models.ErrResponseLimitReached
	}

	record := models.ResponseRecord{
		ID:              util.GenerateResponseID(),
		TemplateID:      templateID,
		RespondentID:    id.UserID,
		RespondentEmail: respondentEmail,
		SubmittedAt:     time.Now(),
	}
	// Field order and labels are captured from the template at submit time so
	// later template edits cannot reinterpret stored responses.
	for _, f := range t.Fields {
		if f.IsPageBreak {
			continue
		}
		value := values[f.FieldKey]
		if value.IsEmpty() {
			continue
		}
		record.Fields = append(record.Fields, models.ResponseField{
			FieldKey: f.FieldKey,
			Label:    f.DisplayName(),
			Value:    value,
		})
	}

	if err := s.store.InsertResponse(record); err != nil {
		slog.Error("TemplateService.Submit: insert failed after cap reservation", "template", templateID, "error", err)
		return nil, err
	}
	slog.Info("TemplateService.Submit: response accepted", "template", templateID, "response", record.ID)
	return &record, nil
}

// SinkFor adapts Submit to the runtime's ResponseSink so a form runtime can
// hand its completed value map straight to this service.
func (s *TemplateService) SinkFor(id models.Identity, respondentEmail string) func(ctx context.Context, templateID string, values models.ValueMap) error {
	return func(ctx context.Context, templateID string, values models.ValueMap) error {
		_, err := s.Submit(ctx, id, templateID, values, respondentEmail)
		return err
	}
}
