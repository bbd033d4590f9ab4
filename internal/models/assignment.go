package models

import (
	"errors"
	"time"
)

// AssignmentStatus tracks an invitation's lifecycle: sent, opened, completed.
type AssignmentStatus string

const (
	AssignmentStatusSent      AssignmentStatus = "sent"
	AssignmentStatusOpened    AssignmentStatus = "opened"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// ErrInvalidAssignmentStatus is returned for status values outside the
// sent/opened/completed lifecycle.
var ErrInvalidAssignmentStatus = errors.New("invalid assignment status")

// IsValidAssignmentStatus checks if the given assignment status is supported.
func IsValidAssignmentStatus(s AssignmentStatus) bool {
	switch s {
	case AssignmentStatusSent, AssignmentStatusOpened, AssignmentStatusCompleted:
		return true
	default:
		return false
	}
}

// FormAssignment ties a template to an invited user through a unique survey
// token embedded in the invitation link.
type FormAssignment struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	UserEmail   string           `json:"userEmail,omitempty"`
	TemplateID  string           `json:"templateId"`
	SurveyToken string           `json:"surveyToken"`
	Status      AssignmentStatus `json:"status"`

	AssignedAt  time.Time  `json:"assignedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the assignment's expiry, if set, has passed.
func (a *FormAssignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}
