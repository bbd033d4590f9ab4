// Package store provides storage backends for FormWeave.
//
// It defines the Store interface the services depend on, with in-memory,
// SQLite, and PostgreSQL implementations. Lookups for missing rows return
// (nil, nil); the service layer maps that to its not-found error so storage
// errors stay distinct from missing resources.
package store

import (
	"strings"

	"github.com/formweave/formweave/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// connection URL for Postgres.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports whether a DSN selects the Postgres or SQLite backend.
// Connection URLs and key=value strings mean Postgres; anything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence contract for templates, responses, and
// assignments.
type Store interface {
	// SaveTemplate inserts or updates a template by ID.
	SaveTemplate(t *models.Template) error

	// GetTemplate retrieves a template by ID, or (nil, nil) when absent.
	GetTemplate(id string) (*models.Template, error)

	// ListTemplates returns all templates owned by ownerID, newest first.
	ListTemplates(ownerID string) ([]models.Template, error)

	// ListPublicTemplates returns active public templates, newest first,
	// optionally filtered by a case-insensitive title/description search,
	// with offset pagination. The second return is the total match count.
	ListPublicTemplates(search string, page, limit int) ([]models.Template, int, error)

	// DeleteTemplate removes a template and cascades deletion of all of its
	// responses.
	DeleteTemplate(id string) error

	// TryIncrementResponseCount atomically increments a template's response
	// count only while it is active and under its response cap. It returns
	// whether the increment was applied. This is the single conditional
	// operation that enforces maxResponses; callers must not check the count
	// and increment separately.
	TryIncrementResponseCount(templateID string) (bool, error)

	// InsertResponse appends an immutable response record.
	InsertResponse(r models.ResponseRecord) error

	// ListResponses returns all responses for a template, newest first.
	ListResponses(templateID string) ([]models.ResponseRecord, error)

	// CreateAssignment inserts a new assignment.
	CreateAssignment(a models.FormAssignment) error

	// GetAssignment retrieves an assignment by ID, or (nil, nil) when absent.
	GetAssignment(id string) (*models.FormAssignment, error)

	// GetAssignmentByToken retrieves an assignment by survey token, or
	// (nil, nil) when absent.
	GetAssignmentByToken(token string) (*models.FormAssignment, error)

	// FindAssignment retrieves the assignment tying userID to templateID, or
	// (nil, nil) when absent.
	FindAssignment(userID, templateID string) (*models.FormAssignment, error)

	// ListAssignmentsByUser returns all assignments for a user, newest first.
	ListAssignmentsByUser(userID string) ([]models.FormAssignment, error)

	// UpdateAssignment persists changes to an existing assignment.
	UpdateAssignment(a models.FormAssignment) error

	// Close releases the backend's resources.
	Close() error
}
