package models

import (
	"errors"
	"fmt"
	"time"
)

// Error variables for template authoring checks. These are authoring-time
// errors, reported to the caller and never persisted.
var (
	ErrTitleRequired   = errors.New("template title is required")
	ErrNoInputFields   = errors.New("template needs at least one non-page-break field")
	ErrTemplateInvalid = errors.New("template validation failed")
)

// Template is a user-authored dynamic form schema: an ordered field list plus
// template-level settings.
type Template struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Fields []FieldDefinition `json:"fields"`

	IsActive       bool `json:"isActive"`
	IsPublic       bool `json:"isPublic"`
	AllowAnonymous bool `json:"allowAnonymous"`

	// MaxResponses caps accepted submissions; nil means uncapped.
	MaxResponses  *int `json:"maxResponses,omitempty"`
	ResponseCount int  `json:"responseCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InputFields returns the non-page-break entries in order.
func (t *Template) InputFields() []FieldDefinition {
	out := make([]FieldDefinition, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !f.IsPageBreak {
			out = append(out, f)
		}
	}
	return out
}

// FieldByKey looks up a non-page-break field by key.
func (t *Template) FieldByKey(key string) (FieldDefinition, bool) {
	for _, f := range t.Fields {
		if !f.IsPageBreak && f.FieldKey == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// ValidateForSave enforces the authoring preconditions: non-empty title, at
// least one non-page-break field, every input field labelled and structurally
// valid, and unique field keys across the template. Visibility conditions
// must reference a field that exists.
func (t *Template) ValidateForSave() error {
	if t.Title == "" {
		return ErrTitleRequired
	}

	inputs := 0
	seen := make(map[string]struct{}, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
		}
		if f.IsPageBreak {
			continue
		}
		inputs++
		if _, dup := seen[f.FieldKey]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateFieldKey, f.FieldKey)
		}
		seen[f.FieldKey] = struct{}{}
	}
	if inputs == 0 {
		return ErrNoInputFields
	}

	for _, f := range t.Fields {
		if f.VisibleIf == nil {
			continue
		}
		if _, ok := seen[f.VisibleIf.DependsOnFieldKey]; !ok {
			return fmt.Errorf("%w: field %q depends on %q", ErrInvalidVisibilityRef, f.FieldKey, f.VisibleIf.DependsOnFieldKey)
		}
	}

	return nil
}

// CanView reports whether the caller may read the template and its responses:
// public templates, the owner, or an admin.
func (t *Template) CanView(id Identity) bool {
	if t.IsPublic {
		return true
	}
	return t.CanEdit(id)
}

// CanEdit reports whether the caller may mutate or delete the template:
// only the owner or an admin.
func (t *Template) CanEdit(id Identity) bool {
	if id.IsAdmin() {
		return true
	}
	return id.Authenticated && id.UserID == t.OwnerID
}
