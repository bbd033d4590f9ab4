// Package store provides storage backends for FormWeave.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/formweave/formweave/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists templates, responses, and assignments in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")
	return &SQLiteStore{db: db}, nil
}

// SaveTemplate inserts or updates a template by ID.
func (s *SQLiteStore) SaveTemplate(t *models.Template) error {
	fieldsJSON, err := encodeFields(t.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO templates
		(id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			fields = excluded.fields,
			is_active = excluded.is_active,
			is_public = excluded.is_public,
			allow_anonymous = excluded.allow_anonymous,
			max_responses = excluded.max_responses,
			updated_at = excluded.updated_at`,
		t.ID, t.OwnerID, t.Title, t.Description, fieldsJSON,
		t.IsActive, t.IsPublic, t.AllowAnonymous, maxResponsesArg(t.MaxResponses),
		t.ResponseCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveTemplate failed", "error", err, "template", t.ID)
		return fmt.Errorf("failed to save template %s: %w", t.ID, err)
	}
	slog.Debug("SQLiteStore SaveTemplate succeeded", "template", t.ID)
	return nil
}

// GetTemplate retrieves a template by ID, or (nil, nil) when absent.
func (s *SQLiteStore) GetTemplate(id string) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTemplate failed", "error", err, "template", id)
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all templates owned by ownerID, newest first.
func (s *SQLiteStore) ListTemplates(ownerID string) ([]models.Template, error) {
	rows, err := s.db.Query(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		slog.Error("SQLiteStore ListTemplates query failed", "error", err, "owner", ownerID)
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListPublicTemplates returns active public templates, newest first, with an
// optional case-insensitive search and offset pagination.
func (s *SQLiteStore) ListPublicTemplates(search string, page, limit int) ([]models.Template, int, error) {
	where := `is_public = 1 AND is_active = 1`
	args := []interface{}{}
	if search != "" {
		where += ` AND (title LIKE ? OR description LIKE ?)`
		needle := "%" + search + "%"
		args = append(args, needle, needle)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM templates WHERE `+where, args...).Scan(&total); err != nil {
		slog.Error("SQLiteStore ListPublicTemplates count failed", "error", err)
		return nil, 0, fmt.Errorf("failed to count public templates: %w", err)
	}

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	rows, err := s.db.Query(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		slog.Error("SQLiteStore ListPublicTemplates query failed", "error", err)
		return nil, 0, fmt.Errorf("failed to query public templates: %w", err)
	}
	defer rows.Close()
	templates, err := collectTemplates(rows)
	if err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

// DeleteTemplate removes a template and cascades deletion of its responses.
func (s *SQLiteStore) DeleteTemplate(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM templates WHERE id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteTemplate failed", "error", err, "template", id)
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM responses WHERE template_id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteTemplate cascade failed", "error", err, "template", id)
		return fmt.Errorf("failed to delete responses for template %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	slog.Debug("SQLiteStore DeleteTemplate succeeded", "template", id)
	return nil
}

// TryIncrementResponseCount performs the conditional increment in a single
// UPDATE so the cap check and the increment cannot race.
func (s *SQLiteStore) TryIncrementResponseCount(templateID string) (bool, error) {
	res, err := s.db.Exec(`UPDATE templates
		SET response_count = response_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = 1
		  AND (max_responses IS NULL OR response_count < max_responses)`, templateID)
	if err != nil {
		slog.Error("SQLiteStore TryIncrementResponseCount failed", "error", err, "template", templateID)
		return false, fmt.Errorf("failed to increment response count for %s: %w", templateID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	slog.Debug("SQLiteStore TryIncrementResponseCount", "template", templateID, "applied", affected == 1)
	return affected == 1, nil
}

// InsertResponse appends an immutable response record.
func (s *SQLiteStore) InsertResponse(r models.ResponseRecord) error {
	fieldsJSON, err := encodeFields(r.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO responses (id, template_id, respondent_id, respondent_email, fields, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TemplateID, nilIfEmpty(r.RespondentID), nilIfEmpty(r.RespondentEmail), fieldsJSON, r.SubmittedAt)
	if err != nil {
		slog.Error("SQLiteStore InsertResponse failed", "error", err, "template", r.TemplateID)
		return fmt.Errorf("failed to insert response for %s: %w", r.TemplateID, err)
	}
	slog.Debug("SQLiteStore InsertResponse succeeded", "template", r.TemplateID, "response", r.ID)
	return nil
}

// ListResponses returns all responses for a template, newest first.
func (s *SQLiteStore) ListResponses(templateID string) ([]models.ResponseRecord, error) {
	rows, err := s.db.Query(`SELECT id, template_id, respondent_id, respondent_email, fields, submitted_at
		FROM responses WHERE template_id = ? ORDER BY submitted_at DESC`, templateID)
	if err != nil {
		slog.Error("SQLiteStore ListResponses query failed", "error", err, "template", templateID)
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()
	return collectResponses(rows)
}

// CreateAssignment inserts a new assignment.
func (s *SQLiteStore) CreateAssignment(a models.FormAssignment) error {
	_, err := s.db.Exec(`INSERT INTO assignments (id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.UserEmail, a.TemplateID, a.SurveyToken, string(a.Status),
		a.AssignedAt, a.CompletedAt, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateAssignment failed", "error", err, "user", a.UserID, "template", a.TemplateID)
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *SQLiteStore) GetAssignment(id string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetAssignment failed", "error", err, "assignment", id)
		return nil, fmt.Errorf("failed to get assignment %s: %w", id, err)
	}
	return a, nil
}

// GetAssignmentByToken retrieves an assignment by survey token.
func (s *SQLiteStore) GetAssignmentByToken(token string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE survey_token = ?`, token)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetAssignmentByToken failed", "error", err)
		return nil, fmt.Errorf("failed to get assignment by token: %w", err)
	}
	return a, nil
}

// FindAssignment retrieves the assignment tying a user to a template.
func (s *SQLiteStore) FindAssignment(userID, templateID string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE user_id = ? AND template_id = ?`, userID, templateID)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore FindAssignment failed", "error", err, "user", userID, "template", templateID)
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return a, nil
}

// ListAssignmentsByUser returns all assignments for a user, newest first.
func (s *SQLiteStore) ListAssignmentsByUser(userID string) ([]models.FormAssignment, error) {
	rows, err := s.db.Query(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE user_id = ? ORDER BY assigned_at DESC`, userID)
	if err != nil {
		slog.Error("SQLiteStore ListAssignmentsByUser query failed", "error", err, "user", userID)
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// UpdateAssignment persists changes to an existing assignment.
func (s *SQLiteStore) UpdateAssignment(a models.FormAssignment) error {
	_, err := s.db.Exec(`UPDATE assignments SET status = ?, completed_at = ?, expires_at = ?, updated_at = ?
		WHERE id = ?`, string(a.Status), a.CompletedAt, a.ExpiresAt, a.UpdatedAt, a.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateAssignment failed", "error", err, "assignment", a.ID)
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func collectTemplates(rows *sql.Rows) ([]models.Template, error) {
	var out []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate template rows: %w", err)
	}
	return out, nil
}

func collectResponses(rows *sql.Rows) ([]models.ResponseRecord, error) {
	var out []models.ResponseRecord
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response row: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate response rows: %w", err)
	}
	return out, nil
}

func collectAssignments(rows *sql.Rows) ([]models.FormAssignment, error) {
	var out []models.FormAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignment rows: %w", err)
	}
	return out, nil
}
