package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/formweave/formweave/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner covers *sql.Row and *sql.Rows so the scan helpers work for both
// single-row and multi-row queries.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTemplate reads one template row in column order: id, owner_id, title,
// description, fields, is_active, is_public, allow_anonymous, max_responses,
// response_count, created_at, updated_at.
func scanTemplate(row rowScanner) (*models.Template, error) {
	var t models.Template
	var fieldsJSON []byte
	var maxResponses sql.NullInt64
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &fieldsJSON,
		&t.IsActive, &t.IsPublic, &t.AllowAnonymous, &maxResponses,
		&t.ResponseCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &t.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode template fields: %w", err)
	}
	if maxResponses.Valid {
		capValue := int(maxResponses.Int64)
		t.MaxResponses = &capValue
	}
	return &t, nil
}

// scanResponse reads one response row in column order: id, template_id,
// respondent_id, respondent_email, fields, submitted_at.
func scanResponse(row rowScanner) (*models.ResponseRecord, error) {
	var r models.ResponseRecord
	var respondentID, respondentEmail sql.NullString
	var fieldsJSON []byte
	err := row.Scan(&r.ID, &r.TemplateID, &respondentID, &respondentEmail, &fieldsJSON, &r.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &r.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode response fields: %w", err)
	}
	r.RespondentID = respondentID.String
	r.RespondentEmail = respondentEmail.String
	return &r, nil
}

// scanAssignment reads one assignment row in column order: id, user_id,
// user_email, template_id, survey_token, status, assigned_at, completed_at,
// expires_at, created_at, updated_at.
func scanAssignment(row rowScanner) (*models.FormAssignment, error) {
	var a models.FormAssignment
	var completedAt, expiresAt sql.NullTime
	var status string
	err := row.Scan(
		&a.ID, &a.UserID, &a.UserEmail, &a.TemplateID, &a.SurveyToken,
		&status, &a.AssignedAt, &completedAt, &expiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssignmentStatus(status)
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if expiresAt.Valid {
		a.ExpiresAt = &expiresAt.Time
	}
	return &a, nil
}

// encodeFields serializes a JSON column payload.
func encodeFields(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	return data, nil
}

// maxResponsesArg converts the optional cap to a nullable column argument.
func maxResponsesArg(capValue *int) interface{} {
	if capValue == nil {
		return nil
	}
	return *capValue
}
