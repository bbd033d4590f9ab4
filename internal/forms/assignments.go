package forms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/formweave/formweave/internal/models"
	"github.com/formweave/formweave/internal/notify"
	"github.com/formweave/formweave/internal/store"
	"github.com/formweave/formweave/internal/util"
	"github.com/google/uuid"
)

// BulkAssignStatus is the per-user outcome of a bulk assignment.
type BulkAssignStatus string

const (
	BulkAssignSuccess BulkAssignStatus = "success"
	BulkAssignSkipped BulkAssignStatus = "skipped"
	BulkAssignFailed  BulkAssignStatus = "failed"
)

// AssignmentTarget identifies one user to invite.
type AssignmentTarget struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// BulkAssignResult reports one target's outcome.
type BulkAssignResult struct {
	UserID     string                 `json:"userId"`
	Status     BulkAssignStatus       `json:"status"`
	Reason     string                 `json:"reason,omitempty"`
	Assignment *models.FormAssignment `json:"assignment,omitempty"`
}

// AssignmentService manages form assignments and their invitations.
type AssignmentService struct {
	store    store.Store
	notifier notify.Service
	baseURL  string
}

// NewAssignmentService creates an AssignmentService. baseURL is the externally
// visible address invitation links are built from.
func NewAssignmentService(st store.Store, notifier notify.Service, baseURL string) *AssignmentService {
	return &AssignmentService{store: st, notifier: notifier, baseURL: baseURL}
}

// Assign ties a template to a user through a fresh survey token. Only admins
// assign forms. An existing assignment for the same user and template is
// returned as-is instead of creating a duplicate; the second return reports
// whether a new assignment was created.
func (s *AssignmentService) Assign(ctx context.Context, id models.Identity, templateID, userID, userEmail string) (*models.FormAssignment, bool, error) {
	if !id.IsAdmin() {
		return nil, false, models.ErrForbidden
	}
	t, err := s.store.GetTemplate(templateID)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		return nil, false, models.ErrNotFound
	}

	if existing, err := s.store.FindAssignment(userID, templateID); err != nil {
		return nil, false, err
	} else if existing != nil {
		slog.Debug("AssignmentService.Assign: already assigned", "user", userID, "template", templateID)
		return existing, false, nil
	}

	now := time.Now()
	a := models.FormAssignment{
		ID:          util.GenerateAssignmentID(),
		UserID:      userID,
		UserEmail:   userEmail,
		TemplateID:  templateID,
		SurveyToken: uuid.NewString(),
		Status:      models.AssignmentStatusSent,
		AssignedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAssignment(a); err != nil {
		slog.Error("AssignmentService.Assign: create failed", "user", userID, "template", templateID, "error", err)
		return nil, false, err
	}
	slog.Info("AssignmentService.Assign: form assigned", "user", userID, "template", templateID, "assignment", a.ID)
	return &a, true, nil
}

// BulkAssign assigns a template to many users, reporting a per-user outcome
// instead of failing the whole batch on the first problem.
func (s *AssignmentService) BulkAssign(ctx context.Context, id models.Identity, templateID string, targets []AssignmentTarget) ([]BulkAssignResult, error) {
	if !id.IsAdmin() {
		return nil, models.ErrForbidden
	}
	t, err := s.store.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, models.ErrNotFound
	}

	results := make([]BulkAssignResult, 0, len(targets))
	for _, target := range targets {
		if target.UserID == "" {
			results = append(results, BulkAssignResult{UserID: target.UserID, Status: BulkAssignFailed, Reason: "missing userId"})
			continue
		}
		existing, err := s.store.FindAssignment(target.UserID, templateID)
		if err != nil {
			results = append(results, BulkAssignResult{UserID: target.UserID, Status: BulkAssignFailed, Reason: err.Error()})
			continue
		}
		if existing != nil {
			results = append(results, BulkAssignResult{UserID: target.UserID, Status: BulkAssignSkipped, Reason: "already assigned", Assignment: existing})
			continue
		}

		now := time.Now()
		a := models.FormAssignment{
			ID:          util.GenerateAssignmentID(),
			UserID:      target.UserID,
			UserEmail:   target.Email,
			TemplateID:  templateID,
			SurveyToken: uuid.NewString(),
			Status:      models.AssignmentStatusSent,
			AssignedAt:  now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateAssignment(a); err != nil {
			results = append(results, BulkAssignResult{UserID: target.UserID, Status: BulkAssignFailed, Reason: err.Error()})
			continue
		}
		results = append(results, BulkAssignResult{UserID: target.UserID, Status: BulkAssignSuccess, Assignment: &a})
	}

	slog.Info("AssignmentService.BulkAssign: completed", "template", templateID, "targets", len(targets))
	return results, nil
}

// ListForUser returns a user's assignments. A caller may list their own;
// admins may list anyone's.
func (s *AssignmentService) ListForUser(ctx context.Context, id models.Identity, userID string) ([]models.FormAssignment, error) {
	if !id.Authenticated {
		return nil, models.ErrUnauthenticated
	}
	if id.UserID != userID && !id.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.store.ListAssignmentsByUser(userID)
}

// ValidateToken resolves a survey token to its assignment and template. An
// unknown or expired token registers as missing, and an authenticated caller
// other than the assigned user is rejected rather than told the token does
// not exist.
func (s *AssignmentService) ValidateToken(ctx context.Context, id models.Identity, token string) (*models.FormAssignment, *models.Template, error) {
	a, err := s.store.GetAssignmentByToken(token)
	if err != nil {
		return nil, nil, err
	}
	if a == nil || a.Expired(time.Now()) {
		return nil, nil, models.ErrNotFound
	}
	if id.Authenticated && id.UserID != a.UserID && !id.IsAdmin() {
		return nil, nil, models.ErrForbidden
	}
	t, err := s.store.GetTemplate(a.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, models.ErrNotFound
	}
	return a, t, nil
}

// UpdateStatus advances an assignment through the sent → opened → completed
// lifecycle. Completing stamps the completion time.
func (s *AssignmentService) UpdateStatus(ctx context.Context, token string, status models.AssignmentStatus) (*models.FormAssignment, error) {
	if !models.IsValidAssignmentStatus(status) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAssignmentStatus, status)
	}
	a, err := s.store.GetAssignmentByToken(token)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.ErrNotFound
	}

	a.Status = status
	if status == models.AssignmentStatusCompleted && a.CompletedAt == nil {
		now := time.Now()
		a.CompletedAt = &now
	}
	a.UpdatedAt = time.Now()

	if err := s.store.UpdateAssignment(*a); err != nil {
		slog.Error("AssignmentService.UpdateStatus: update failed", "assignment", a.ID, "error", err)
		return nil, err
	}
	slog.Info("AssignmentService.UpdateStatus: status updated", "assignment", a.ID, "status", status)
	return a, nil
}

// SendInvite delivers the invitation for an assignment through the configured
// transport. Delivery failure is surfaced to the caller and not retried.
func (s *AssignmentService) SendInvite(ctx context.Context, id models.Identity, assignmentID string) (*models.FormAssignment, error) {
	if !id.IsAdmin() {
		return nil, models.ErrForbidden
	}
	a, err := s.store.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.ErrNotFound
	}
	if a.UserEmail == "" {
		return nil, fmt.Errorf("assignment %s has no recipient address", a.ID)
	}
	t, err := s.store.GetTemplate(a.TemplateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, models.ErrNotFound
	}

	link := fmt.Sprintf("%s/form?token=%s", s.baseURL, a.SurveyToken)
	subject := fmt.Sprintf("Please Fill Out: %s", t.Title)
	body := fmt.Sprintf("Hi,\n\nYou've been invited to fill out the form: %s.\n\nOpen the form here:\n%s\n\nBest regards,\nFormWeave", t.Title, link)

	if err := s.notifier.Send(ctx, a.UserEmail, subject, body); err != nil {
		slog.Error("AssignmentService.SendInvite: delivery failed", "assignment", a.ID, "error", err)
		return nil, fmt.Errorf("invitation delivery failed: %w", err)
	}
	slog.Info("AssignmentService.SendInvite: invitation sent", "assignment", a.ID, "to", a.UserEmail)
	return a, nil
}
