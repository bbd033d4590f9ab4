// Package runtime implements the stateful session that drives a single
// fill-out attempt of a form: current page, current values, per-field errors,
// and the navigation and submit transitions between them.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/formweave/formweave/internal/models"
	"github.com/formweave/formweave/internal/schema"
)

// State is the runtime's lifecycle state.
type State string

const (
	// StateEditing means the respondent is still filling out pages.
	StateEditing State = "editing"
	// StateSubmitted means the response was accepted by the sink.
	StateSubmitted State = "submitted"
)

// Error variables for runtime transitions. Validation failures are always
// recoverable: the caller corrects values and retries.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrAlreadySubmitted = errors.New("form already submitted")
)

// ResponseSink receives the completed value map on successful submit. The
// runtime reports sink I/O failures upward and never retries them.
type ResponseSink interface {
	AcceptResponse(ctx context.Context, templateID string, values models.ValueMap) error
}

// SinkFunc adapts a function to the ResponseSink interface.
type SinkFunc func(ctx context.Context, templateID string, values models.ValueMap) error

// AcceptResponse calls the wrapped function.
func (f SinkFunc) AcceptResponse(ctx context.Context, templateID string, values models.ValueMap) error {
	return f(ctx, templateID, values)
}

// Runtime holds one fill-out session. It is transient and not persisted; a
// single logical user session drives one Runtime at a time, so no locking is
// done for its in-memory state.
type Runtime struct {
	template  *models.Template
	pages     [][]models.FieldDefinition
	pageIndex int
	values    models.ValueMap
	errors    map[string]string
	state     State
}

// New creates a Runtime at page zero with values seeded from each field's
// default: the boolean default for a pure checkbox, an empty sequence for
// multiselect and checkbox groups, and otherwise the literal default or an
// empty string.
func New(t *models.Template) *Runtime {
	r := &Runtime{
		template: t,
		pages:    schema.Paginate(t.Fields),
		values:   make(models.ValueMap),
		errors:   make(map[string]string),
		state:    StateEditing,
	}
	for _, f := range t.Fields {
		if f.IsPageBreak || f.FieldKey == "" {
			continue
		}
		if _, exists := r.values[f.FieldKey]; exists {
			continue
		}
		r.values[f.FieldKey] = seedValue(f)
	}
	return r
}

func seedValue(f models.FieldDefinition) models.Value {
	switch {
	case f.IsMultiValue():
		if f.DefaultValue.Kind() == models.ValueList {
			return f.DefaultValue
		}
		return models.ListValue()
	case f.InputWidget == models.WidgetCheckbox:
		return models.BoolValue(f.DefaultValue.Bool())
	default:
		if !f.DefaultValue.IsNull() {
			return f.DefaultValue
		}
		return models.StringValue("")
	}
}

// State returns the runtime's lifecycle state.
func (r *Runtime) State() State { return r.state }

// Page returns the current zero-based page index.
func (r *Runtime) Page() int { return r.pageIndex }

// PageCount returns the total number of pages.
func (r *Runtime) PageCount() int { return len(r.pages) }

// CurrentPage returns the field definitions on the current page.
func (r *Runtime) CurrentPage() []models.FieldDefinition {
	return r.pages[r.pageIndex]
}

// Values returns a copy of the full value map, covering fields on every page.
func (r *Runtime) Values() models.ValueMap { return r.values.Clone() }

// Errors returns a copy of the current per-field error map.
func (r *Runtime) Errors() map[string]string {
	cp := make(map[string]string, len(r.errors))
	for k, v := range r.errors {
		cp[k] = v
	}
	return cp
}

// SetValue updates one field's value and optimistically clears any existing
// error for that key. Re-validation happens on the next navigation or submit
// attempt, not on every change.
func (r *Runtime) SetValue(fieldKey string, value models.Value) {
	if r.state != StateEditing {
		return
	}
	r.values[fieldKey] = value
	delete(r.errors, fieldKey)
}

// Next validates the current page. When valid it advances the page index,
// clamped to the last page, and returns true. Otherwise it stores the errors
// and stays put.
func (r *Runtime) Next() bool {
	if r.state != StateEditing {
		return false
	}
	errs := schema.ValidatePage(r.pages[r.pageIndex], r.values)
	r.errors = errs
	if len(errs) > 0 {
		slog.Debug("Runtime.Next: page invalid", "page", r.pageIndex, "errors", len(errs))
		return false
	}
	if r.pageIndex < len(r.pages)-1 {
		r.pageIndex++
	}
	return true
}

// Back moves to the previous page, clamped to zero. It never re-validates, so
// entered values survive backward navigation untouched.
func (r *Runtime) Back() {
	if r.state != StateEditing {
		return
	}
	if r.pageIndex > 0 {
		r.pageIndex--
	}
}

// Submit validates every page, not just the final one, so required fields on
// earlier pages cannot slip through after back-navigation. When all pages
// pass, the full value map restricted to input field keys is handed to the
// sink and the runtime transitions to Submitted. A sink failure is returned
// to the caller and leaves the runtime in Editing so the submit can be
// retried by the caller's choice.
func (r *Runtime) Submit(ctx context.Context, sink ResponseSink) error {
	if r.state == StateSubmitted {
		return ErrAlreadySubmitted
	}

	errs := make(map[string]string)
	for _, page := range r.pages {
		for key, msg := range schema.ValidatePage(page, r.values) {
			errs[key] = msg
		}
	}
	r.errors = errs
	if len(errs) > 0 {
		slog.Debug("Runtime.Submit: validation failed", "template", r.template.ID, "errors", len(errs))
		return ErrValidationFailed
	}

	payload := make(models.ValueMap, len(r.values))
	for _, f := range r.template.Fields {
		if f.IsPageBreak || f.FieldKey == "" {
			continue
		}
		payload[f.FieldKey] = r.values[f.FieldKey]
	}

	if err := sink.AcceptResponse(ctx, r.template.ID, payload); err != nil {
		slog.Error("Runtime.Submit: sink rejected response", "template", r.template.ID, "error", err)
		return fmt.Errorf("submit response: %w", err)
	}

	r.state = StateSubmitted
	slog.Info("Runtime.Submit: response submitted", "template", r.template.ID, "fields", len(payload))
	return nil
}
