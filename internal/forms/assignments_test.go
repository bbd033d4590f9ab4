package forms

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/formweave/formweave/internal/models"
	"github.com/formweave/formweave/internal/notify"
	"github.com/formweave/formweave/internal/store"
)

func newAssignmentFixture(t *testing.T) (*AssignmentService, *notify.Recorder, *models.Template) {
	t.Helper()
	st := store.NewInMemoryStore()
	templates := NewTemplateService(st)
	created, err := templates.Create(context.Background(), owner, draftTemplate())
	if err != nil {
		t.Fatalf("create template failed: %v", err)
	}
	rec := notify.NewRecorder()
	svc := NewAssignmentService(st, rec, "https://forms.example.com")
	return svc, rec, created
}

func TestAssignmentServiceAssign(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)

	if _, _, err := svc.Assign(context.Background(), other, tmpl.ID, "u9", ""); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("non-admin assign: expected ErrForbidden, got %v", err)
	}
	if _, _, err := svc.Assign(context.Background(), admin, "tpl_missing", "u9", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing template: expected ErrNotFound, got %v", err)
	}

	a, created, err := svc.Assign(context.Background(), admin, tmpl.ID, "u9", "u9@example.com")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if !created {
		t.Error("first assign should report creation")
	}
	if a.SurveyToken == "" || a.Status != models.AssignmentStatusSent {
		t.Errorf("assignment not initialized: %+v", a)
	}

	// Assigning again returns the existing assignment unchanged.
	again, created, err := svc.Assign(context.Background(), admin, tmpl.ID, "u9", "u9@example.com")
	if err != nil {
		t.Fatalf("repeat assign failed: %v", err)
	}
	if created {
		t.Error("repeat assign must not create")
	}
	if again.ID != a.ID || again.SurveyToken != a.SurveyToken {
		t.Errorf("repeat assign returned a different assignment: %+v vs %+v", again, a)
	}
}

func TestAssignmentServiceBulkAssign(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)

	if _, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", ""); err != nil {
		t.Fatalf("seed assign failed: %v", err)
	}

	targets := []AssignmentTarget{
		{UserID: "u2", Email: "u2@example.com"}, // already assigned
		{UserID: "u3", Email: "u3@example.com"},
		{UserID: ""}, // invalid
	}
	results, err := svc.BulkAssign(context.Background(), admin, tmpl.ID, targets)
	if err != nil {
		t.Fatalf("bulk assign failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != BulkAssignSkipped {
		t.Errorf("existing assignment should be skipped, got %s", results[0].Status)
	}
	if results[1].Status != BulkAssignSuccess || results[1].Assignment == nil {
		t.Errorf("fresh target should succeed, got %+v", results[1])
	}
	if results[2].Status != BulkAssignFailed {
		t.Errorf("missing userId should fail, got %s", results[2].Status)
	}

	if _, err := svc.BulkAssign(context.Background(), other, tmpl.ID, targets); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("non-admin bulk assign: expected ErrForbidden, got %v", err)
	}
}

func TestAssignmentServiceValidateToken(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)
	a, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", "u2@example.com")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	gotA, gotT, err := svc.ValidateToken(context.Background(), other, a.SurveyToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if gotA.ID != a.ID || gotT.ID != tmpl.ID {
		t.Errorf("token resolved to wrong records: %+v %+v", gotA, gotT)
	}

	// Anonymous access through the token link is allowed.
	if _, _, err := svc.ValidateToken(context.Background(), models.Anonymous(), a.SurveyToken); err != nil {
		t.Errorf("anonymous token access failed: %v", err)
	}

	// A different authenticated user is rejected, distinctly from not-found.
	stranger := models.Identity{UserID: "u5", Role: models.RoleUser, Authenticated: true}
	if _, _, err := svc.ValidateToken(context.Background(), stranger, a.SurveyToken); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if _, _, err := svc.ValidateToken(context.Background(), other, "bogus"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown token: expected ErrNotFound, got %v", err)
	}
}

func TestAssignmentServiceValidateTokenExpired(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)
	a, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", "")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	a.ExpiresAt = &past
	if err := svc.store.UpdateAssignment(*a); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, _, err := svc.ValidateToken(context.Background(), other, a.SurveyToken); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expired token: expected ErrNotFound, got %v", err)
	}
}

func TestAssignmentServiceUpdateStatus(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)
	a, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", "")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	opened, err := svc.UpdateStatus(context.Background(), a.SurveyToken, models.AssignmentStatusOpened)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened.Status != models.AssignmentStatusOpened || opened.CompletedAt != nil {
		t.Errorf("unexpected state after open: %+v", opened)
	}

	done, err := svc.UpdateStatus(context.Background(), a.SurveyToken, models.AssignmentStatusCompleted)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("completing must stamp the completion time")
	}

	if _, err := svc.UpdateStatus(context.Background(), a.SurveyToken, "bogus"); !errors.Is(err, models.ErrInvalidAssignmentStatus) {
		t.Errorf("expected ErrInvalidAssignmentStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "bogus", models.AssignmentStatusOpened); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown token: expected ErrNotFound, got %v", err)
	}
}

func TestAssignmentServiceListForUser(t *testing.T) {
	svc, _, tmpl := newAssignmentFixture(t)
	if _, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", ""); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	mine, err := svc.ListForUser(context.Background(), other, "u2")
	if err != nil || len(mine) != 1 {
		t.Errorf("self list failed: %v %v", mine, err)
	}
	if _, err := svc.ListForUser(context.Background(), other, "u9"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("listing another user: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListForUser(context.Background(), admin, "u2"); err != nil {
		t.Errorf("admin list failed: %v", err)
	}
	if _, err := svc.ListForUser(context.Background(), models.Anonymous(), "u2"); !errors.Is(err, models.ErrUnauthenticated) {
		t.Errorf("anonymous list: expected ErrUnauthenticated, got %v", err)
	}
}

func TestAssignmentServiceSendInvite(t *testing.T) {
	svc, rec, tmpl := newAssignmentFixture(t)
	a, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", "u2@example.com")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if _, err := svc.SendInvite(context.Background(), other, a.ID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("non-admin invite: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.SendInvite(context.Background(), admin, "asg_missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing assignment: expected ErrNotFound, got %v", err)
	}

	if _, err := svc.SendInvite(context.Background(), admin, a.ID); err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	msgs := rec.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].To != "u2@example.com" {
		t.Errorf("wrong recipient %q", msgs[0].To)
	}
	if msgs[0].Subject != "Please Fill Out: Signup" {
		t.Errorf("wrong subject %q", msgs[0].Subject)
	}
	wantLink := "https://forms.example.com/form?token=" + a.SurveyToken
	if !strings.Contains(msgs[0].Body, wantLink) {
		t.Errorf("body missing form link %q:\n%s", wantLink, msgs[0].Body)
	}
}

func TestAssignmentServiceSendInviteFailure(t *testing.T) {
	svc, rec, tmpl := newAssignmentFixture(t)
	a, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u2", "u2@example.com")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	rec.FailWith = errors.New("smtp down")
	if _, err := svc.SendInvite(context.Background(), admin, a.ID); err == nil {
		t.Error("delivery failure must surface")
	}

	// An assignment without a recipient address cannot be invited.
	b, _, err := svc.Assign(context.Background(), admin, tmpl.ID, "u3", "")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	rec.FailWith = nil
	if _, err := svc.SendInvite(context.Background(), admin, b.ID); err == nil {
		t.Error("invite without recipient address must fail")
	}
}
