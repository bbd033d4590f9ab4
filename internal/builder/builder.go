// Package builder implements the authoring side of the form engine: an
// in-progress field list plus template settings, mutated through the
// operations the template editor exposes and persisted as a Template once the
// authoring preconditions hold.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/formweave/formweave/internal/models"
)

// Error variables for builder operations.
var (
	ErrIndexOutOfRange = errors.New("field index out of range")
	ErrNotAnInputField = errors.New("entry is a page break, not an input field")
)

// TemplateSaver persists a built template, creating or updating it. The forms
// service satisfies this interface.
type TemplateSaver interface {
	Create(ctx context.Context, id models.Identity, t *models.Template) (*models.Template, error)
	Update(ctx context.Context, id models.Identity, t *models.Template) (*models.Template, error)
}

// Builder accumulates a template definition under construction. Like the
// runtime, it is transient, driven by a single session, and unlocked.
type Builder struct {
	templateID  string // empty until first save
	title       string
	description string
	fields      []models.FieldDefinition

	isPublic       bool
	allowAnonymous bool
	maxResponses   *int
}

// New creates an empty Builder. Anonymous access defaults to allowed, the
// same default a fresh template carries.
func New() *Builder {
	return &Builder{allowAnonymous: true}
}

// Load seeds a Builder from an existing template so a saved form can be
// edited in place.
func Load(t *models.Template) *Builder {
	fields := make([]models.FieldDefinition, len(t.Fields))
	copy(fields, t.Fields)
	return &Builder{
		templateID:     t.ID,
		title:          t.Title,
		description:    t.Description,
		fields:         fields,
		isPublic:       t.IsPublic,
		allowAnonymous: t.AllowAnonymous,
		maxResponses:   t.MaxResponses,
	}
}

// SetTitle sets the template title.
func (b *Builder) SetTitle(title string) { b.title = title }

// SetDescription sets the template description.
func (b *Builder) SetDescription(desc string) { b.description = desc }

// SetPublic sets whether the template is publicly browsable.
func (b *Builder) SetPublic(public bool) { b.isPublic = public }

// SetAllowAnonymous sets whether unauthenticated submissions are accepted.
func (b *Builder) SetAllowAnonymous(allow bool) { b.allowAnonymous = allow }

// SetMaxResponses caps accepted submissions; nil removes the cap.
func (b *Builder) SetMaxResponses(cap *int) { b.maxResponses = cap }

// Fields returns a copy of the current field list.
func (b *Builder) Fields() []models.FieldDefinition {
	cp := make([]models.FieldDefinition, len(b.fields))
	copy(cp, b.fields)
	return cp
}

// AddField appends an input field to the list.
func (b *Builder) AddField(f models.FieldDefinition) {
	b.fields = append(b.fields, f)
}

// AddPageBreak appends a page separator.
func (b *Builder) AddPageBreak() {
	b.fields = append(b.fields, models.PageBreak())
}

// RemoveField deletes the entry at index.
func (b *Builder) RemoveField(index int) error {
	if index < 0 || index >= len(b.fields) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	b.fields = append(b.fields[:index], b.fields[index+1:]...)
	return nil
}

// MoveField swaps the entry at index with its neighbor: the previous entry
// when up is true, the next one otherwise. Moving past either end is a no-op.
func (b *Builder) MoveField(index int, up bool) error {
	if index < 0 || index >= len(b.fields) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	swap := index + 1
	if up {
		swap = index - 1
	}
	if swap < 0 || swap >= len(b.fields) {
		return nil
	}
	b.fields[index], b.fields[swap] = b.fields[swap], b.fields[index]
	return nil
}

// AddOption appends an option to the field at index.
func (b *Builder) AddOption(index int, opt models.Option) error {
	f, err := b.inputField(index)
	if err != nil {
		return err
	}
	f.Options = append(f.Options, opt)
	return nil
}

// UpdateOption replaces the option at optIndex on the field at index.
func (b *Builder) UpdateOption(index, optIndex int, opt models.Option) error {
	f, err := b.inputField(index)
	if err != nil {
		return err
	}
	if optIndex < 0 || optIndex >= len(f.Options) {
		return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, optIndex)
	}
	f.Options[optIndex] = opt
	return nil
}

// RemoveOption deletes the option at optIndex on the field at index.
func (b *Builder) RemoveOption(index, optIndex int) error {
	f, err := b.inputField(index)
	if err != nil {
		return err
	}
	if optIndex < 0 || optIndex >= len(f.Options) {
		return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, optIndex)
	}
	f.Options = append(f.Options[:optIndex], f.Options[optIndex+1:]...)
	return nil
}

func (b *Builder) inputField(index int) (*models.FieldDefinition, error) {
	if index < 0 || index >= len(b.fields) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	f := &b.fields[index]
	if f.IsPageBreak {
		return nil, fmt.Errorf("%w: index %d", ErrNotAnInputField, index)
	}
	return f, nil
}

// Template materializes the builder's current state as a Template.
func (b *Builder) Template() *models.Template {
	fields := make([]models.FieldDefinition, len(b.fields))
	copy(fields, b.fields)
	return &models.Template{
		ID:             b.templateID,
		Title:          b.title,
		Description:    b.description,
		Fields:         fields,
		IsActive:       true,
		IsPublic:       b.isPublic,
		AllowAnonymous: b.allowAnonymous,
		MaxResponses:   b.maxResponses,
	}
}

// Save validates the authoring preconditions and persists the current field
// list and settings through the saver, creating on first save and updating
// afterwards. On success the builder remembers the stored template ID so
// subsequent saves update in place.
func (b *Builder) Save(ctx context.Context, saver TemplateSaver, id models.Identity) (*models.Template, error) {
	t := b.Template()
	if err := t.ValidateForSave(); err != nil {
		slog.Debug("Builder.Save: authoring validation failed", "title", b.title, "error", err)
		return nil, err
	}

	var (
		saved *models.Template
		err   error
	)
	if b.templateID == "" {
		saved, err = saver.Create(ctx, id, t)
	} else {
		saved, err = saver.Update(ctx, id, t)
	}
	if err != nil {
		slog.Error("Builder.Save: persist failed", "title", b.title, "error", err)
		return nil, err
	}

	b.templateID = saved.ID
	slog.Info("Builder.Save: template saved", "template", saved.ID, "fields", len(saved.Fields))
	return saved, nil
}
