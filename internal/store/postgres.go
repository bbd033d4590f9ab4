// Package store provides storage backends for FormWeave.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/formweave/formweave/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists templates, responses, and assignments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveTemplate inserts or updates a template by ID.
func (s *PostgresStore) SaveTemplate(t *models.Template) error {
	fieldsJSON, err := encodeFields(t.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO templates
		(id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			fields = EXCLUDED.fields,
			is_active = EXCLUDED.is_active,
			is_public = EXCLUDED.is_public,
			allow_anonymous = EXCLUDED.allow_anonymous,
			max_responses = EXCLUDED.max_responses,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.OwnerID, t.Title, t.Description, fieldsJSON,
		t.IsActive, t.IsPublic, t.AllowAnonymous, maxResponsesArg(t.MaxResponses),
		t.ResponseCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveTemplate failed", "error", err, "template", t.ID)
		return fmt.Errorf("failed to save template %s: %w", t.ID, err)
	}
	slog.Debug("PostgresStore SaveTemplate succeeded", "template", t.ID)
	return nil
}

// GetTemplate retrieves a template by ID, or (nil, nil) when absent.
func (s *PostgresStore) GetTemplate(id string) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTemplate failed", "error", err, "template", id)
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all templates owned by ownerID, newest first.
func (s *PostgresStore) ListTemplates(ownerID string) ([]models.Template, error) {
	rows, err := s.db.Query(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		slog.Error("PostgresStore ListTemplates query failed", "error", err, "owner", ownerID)
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListPublicTemplates returns active public templates, newest first, with an
// optional case-insensitive search and offset pagination.
func (s *PostgresStore) ListPublicTemplates(search string, page, limit int) ([]models.Template, int, error) {
	where := `is_public AND is_active`
	args := []interface{}{}
	if search != "" {
		where += fmt.Sprintf(` AND (title ILIKE $%d OR description ILIKE $%d)`, len(args)+1, len(args)+2)
		needle := "%" + search + "%"
		args = append(args, needle, needle)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM templates WHERE `+where, args...).Scan(&total); err != nil {
		slog.Error("PostgresStore ListPublicTemplates count failed", "error", err)
		return nil, 0, fmt.Errorf("failed to count public templates: %w", err)
	}

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT id, owner_id, title, description, fields, is_active, is_public, allow_anonymous, max_responses, response_count, created_at, updated_at
		FROM templates WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListPublicTemplates query failed", "error", err)
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
func (s *PostgresStore) DeleteTemplate(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM templates WHERE id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteTemplate failed", "error", err, "template", id)
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM responses WHERE template_id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteTemplate cascade failed", "error", err, "template", id)
		return fmt.Errorf("failed to delete responses for template %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	slog.Debug("PostgresStore DeleteTemplate succeeded", "template", id)
	return nil
}

// TryIncrementResponseCount performs the conditional increment in a single
// UPDATE so the cap check and the increment cannot race.
func (s *PostgresStore) TryIncrementResponseCount(templateID string) (bool, error) {
	res, err := s.db.Exec(`UPDATE templates
		SET response_count = response_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_active
		  AND (max_responses IS NULL OR response_count < max_responses)`, templateID)
	if err != nil {
		slog.Error("PostgresStore TryIncrementResponseCount failed", "error", err, "template", templateID)
		return false, fmt.Errorf("failed to increment response count for %s: %w", templateID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	slog.Debug("PostgresStore TryIncrementResponseCount", "template", templateID, "applied", affected == 1)
	return affected == 1, nil
}

// InsertResponse appends an immutable response record.
func (s *PostgresStore) InsertResponse(r models.ResponseRecord) error {
	fieldsJSON, err := encodeFields(r.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO responses (id, template_id, respondent_id, respondent_email, fields, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.TemplateID, nilIfEmpty(r.RespondentID), nilIfEmpty(r.RespondentEmail), fieldsJSON, r.SubmittedAt)
	if err != nil {
		slog.Error("PostgresStore InsertResponse failed", "error", err, "template", r.TemplateID)
		return fmt.Errorf("failed to insert response for %s: %w", r.TemplateID, err)
	}
	slog.Debug("PostgresStore InsertResponse succeeded", "template", r.TemplateID, "response", r.ID)
	return nil
}

// ListResponses returns all responses for a template, newest first.
func (s *PostgresStore) ListResponses(templateID string) ([]models.ResponseRecord, error) {
	rows, err := s.db.Query(`SELECT id, template_id, respondent_id, respondent_email, fields, submitted_at
		FROM responses WHERE template_id = $1 ORDER BY submitted_at DESC`, templateID)
	if err != nil {
		slog.Error("PostgresStore ListResponses query failed", "error", err, "template", templateID)
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()
	return collectResponses(rows)
}

// CreateAssignment inserts a new assignment.
func (s *PostgresStore) CreateAssignment(a models.FormAssignment) error {
	_, err := s.db.Exec(`INSERT INTO assignments (id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.UserID, a.UserEmail, a.TemplateID, a.SurveyToken, string(a.Status),
		a.AssignedAt, a.CompletedAt, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateAssignment failed", "error", err, "user", a.UserID, "template", a.TemplateID)
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *PostgresStore) GetAssignment(id string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetAssignment failed", "error", err, "assignment", id)
		return nil, fmt.Errorf("failed to get assignment %s: %w", id, err)
	}
	return a, nil
}

// GetAssignmentByToken retrieves an assignment by survey token.
func (s *PostgresStore) GetAssignmentByToken(token string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE survey_token = $1`, token)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetAssignmentByToken failed", "error", err)
		return nil, fmt.Errorf("failed to get assignment by token: %w", err)
	}
	return a, nil
}

// FindAssignment retrieves the assignment tying a user to a template.
func (s *PostgresStore) FindAssignment(userID, templateID string) (*models.FormAssignment, error) {
	row := s.db.QueryRow(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE user_id = $1 AND template_id = $2`, userID, templateID)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore FindAssignment failed", "error", err, "user", userID, "template", templateID)
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return a, nil
}

// ListAssignmentsByUser returns all assignments for a user, newest first.
func (s *PostgresStore) ListAssignmentsByUser(userID string) ([]models.FormAssignment, error) {
	rows, err := s.db.Query(`SELECT id, user_id, user_email, template_id, survey_token, status, assigned_at, completed_at, expires_at, created_at, updated_at
		FROM assignments WHERE user_id = $1 ORDER BY assigned_at DESC`, userID)
	if err != nil {
		slog.Error("PostgresStore ListAssignmentsByUser query failed", "error", err, "user", userID)
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// UpdateAssignment persists changes to an existing assignment.
func (s *PostgresStore) UpdateAssignment(a models.FormAssignment) error {
	_, err := s.db.Exec(`UPDATE assignments SET status = $1, completed_at = $2, expires_at = $3, updated_at = $4
		WHERE id = $5`, string(a.Status), a.CompletedAt, a.ExpiresAt, a.UpdatedAt, a.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateAssignment failed", "error", err, "assignment", a.ID)
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
