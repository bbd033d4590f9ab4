package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/formweave/formweave/internal/models"
)

// InMemoryStore is a mutex-guarded Store used by tests and ephemeral runs.
// The response cap is enforced under the same lock as the increment, so it
// holds the same atomicity guarantee as the SQL backends.
type InMemoryStore struct {
	mu          sync.Mutex
	templates   map[string]models.Template
	responses   map[string][]models.ResponseRecord
	assignments map[string]models.FormAssignment
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		templates:   make(map[string]models.Template),
		responses:   make(map[string][]models.ResponseRecord),
		assignments: make(map[string]models.FormAssignment),
	}
}

// SaveTemplate inserts or updates a template by ID.
func (s *InMemoryStore) SaveTemplate(t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = *cloneTemplate(t)
	return nil
}

// GetTemplate retrieves a template by ID, or (nil, nil) when absent.
func (s *InMemoryStore) GetTemplate(id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	return cloneTemplate(&t), nil
}

// ListTemplates returns all templates owned by ownerID, newest first.
func (s *InMemoryStore) ListTemplates(ownerID string) ([]models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Template
	for _, t := range s.templates {
		if t.OwnerID == ownerID {
			out = append(out, *cloneTemplate(&t))
		}
	}
	sortTemplatesNewestFirst(out)
	return out, nil
}

// ListPublicTemplates returns active public templates matching the search,
// newest first, with offset pagination and a total count.
func (s *InMemoryStore) ListPublicTemplates(search string, page, limit int) ([]models.Template, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(search)
	var matches []models.Template
	for _, t := range s.templates {
		if !t.IsPublic || !t.IsActive {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		matches = append(matches, *cloneTemplate(&t))
	}
	sortTemplatesNewestFirst(matches)

	total := len(matches)
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

// DeleteTemplate removes a template with all of its responses and assignments.
func (s *InMemoryStore) DeleteTemplate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
	delete(s.responses, id)
	for key, a := range s.assignments {
		if a.TemplateID == id {
			delete(s.assignments, key)
		}
	}
	return nil
}

// TryIncrementResponseCount applies the conditional increment under the
// store lock.
func (s *InMemoryStore) TryIncrementResponseCount(templateID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok || !t.IsActive {
		return false, nil
	}
	if t.MaxResponses != nil && t.ResponseCount >= *t.MaxResponses {
		return false, nil
	}
	t.ResponseCount++
	t.UpdatedAt = time.Now()
	s.templates[templateID] = t
	return true, nil
}

// InsertResponse appends an immutable response record.
func (s *InMemoryStore) InsertResponse(r models.ResponseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[r.TemplateID] = append(s.responses[r.TemplateID], r)
	return nil
}

// ListResponses returns all responses for a template, newest first.
func (s *InMemoryStore) ListResponses(templateID string) ([]models.ResponseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.responses[templateID]
	out := make([]models.ResponseRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// CreateAssignment inserts a new assignment.
func (s *InMemoryStore) CreateAssignment(a models.FormAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *InMemoryStore) GetAssignment(id string) (*models.FormAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := a
	return &cp, nil
}

// GetAssignmentByToken retrieves an assignment by survey token.
func (s *InMemoryStore) GetAssignmentByToken(token string) (*models.FormAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.SurveyToken == token {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

// FindAssignment retrieves the assignment tying a user to a template.
func (s *InMemoryStore) FindAssignment(userID, templateID string) (*models.FormAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.UserID == userID && a.TemplateID == templateID {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

// ListAssignmentsByUser returns all assignments for a user, newest first.
func (s *InMemoryStore) ListAssignmentsByUser(userID string) ([]models.FormAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FormAssignment
	for _, a := range s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AssignedAt.After(out[j].AssignedAt)
	})
	return out, nil
}

// UpdateAssignment persists changes to an existing assignment.
func (s *InMemoryStore) UpdateAssignment(a models.FormAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func cloneTemplate(t *models.Template) *models.Template {
	cp := *t
	cp.Fields = make([]models.FieldDefinition, len(t.Fields))
	copy(cp.Fields, t.Fields)
	if t.MaxResponses != nil {
		capCopy := *t.MaxResponses
		cp.MaxResponses = &capCopy
	}
	return &cp
}

func sortTemplatesNewestFirst(ts []models.Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}
