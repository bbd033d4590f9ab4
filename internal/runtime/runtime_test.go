package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/formweave/formweave/internal/models"
)

func textField(key string, required bool) models.FieldDefinition {
	return models.FieldDefinition{
		FieldKey:    key,
		Label:       key,
		DataType:    models.DataTypeString,
		InputWidget: models.WidgetText,
		Required:    required,
	}
}

func wizardTemplate() *models.Template {
	return &models.Template{
		ID:    "tpl_test",
		Title: "Signup",
		Fields: []models.FieldDefinition{
			textField("name", true),
			textField("email", true),
			models.PageBreak(),
			textField("company", false),
			models.PageBreak(),
			textField("feedback", true),
		},
	}
}

type captureSink struct {
	templateID string
	values     models.ValueMap
	calls      int
	err        error
}

func (s *captureSink) AcceptResponse(ctx context.Context, templateID string, values models.ValueMap) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.templateID = templateID
	s.values = values
	return nil
}

func TestRuntimeWizardFlow(t *testing.T) {
	r := New(wizardTemplate())
	if r.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", r.PageCount())
	}
	if r.Page() != 0 || r.State() != StateEditing {
		t.Fatalf("unexpected initial state: page=%d state=%s", r.Page(), r.State())
	}

	// First page blocks until its required fields are filled.
	if r.Next() {
		t.Fatal("Next should fail with required fields empty")
	}
	if r.Page() != 0 {
		t.Errorf("failed Next must not advance, at page %d", r.Page())
	}
	if r.Errors()["name"] == "" || r.Errors()["email"] == "" {
		t.Errorf("expected errors for name and email, got %v", r.Errors())
	}

	r.SetValue("name", models.StringValue("Ada"))
	r.SetValue("email", models.StringValue("ada@example.com"))
	if !r.Next() {
		t.Fatalf("Next should succeed, errors: %v", r.Errors())
	}
	if r.Page() != 1 {
		t.Errorf("expected page 1, got %d", r.Page())
	}

	// Optional page passes untouched.
	if !r.Next() {
		t.Fatalf("optional page should pass, errors: %v", r.Errors())
	}
	if r.Page() != 2 {
		t.Errorf("expected page 2, got %d", r.Page())
	}

	r.SetValue("feedback", models.StringValue("great"))
	sink := &captureSink{}
	if err := r.Submit(context.Background(), sink); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if r.State() != StateSubmitted {
		t.Errorf("expected Submitted state, got %s", r.State())
	}
	if sink.templateID != "tpl_test" {
		t.Errorf("sink got template %q", sink.templateID)
	}
	if sink.values["name"].Str() != "Ada" || sink.values["company"].Str() != "" {
		t.Errorf("sink payload incomplete: %v", sink.values)
	}
	if _, ok := sink.values["feedback"]; !ok {
		t.Error("payload should cover every input field")
	}
}

func TestRuntimeSeedsDefaults(t *testing.T) {
	tmpl := &models.Template{
		ID:    "tpl_defaults",
		Title: "Defaults",
		Fields: []models.FieldDefinition{
			{FieldKey: "country", Label: "Country", DataType: models.DataTypeString, InputWidget: models.WidgetText, DefaultValue: models.StringValue("CA")},
			{FieldKey: "subscribe", Label: "Subscribe", DataType: models.DataTypeBoolean, InputWidget: models.WidgetCheckbox, DefaultValue: models.BoolValue(true)},
			{FieldKey: "topics", Label: "Topics", DataType: models.DataTypeString, InputWidget: models.WidgetMultiselect, Options: []models.Option{{Label: "Go", Value: "go"}}},
			{FieldKey: "name", Label: "Name", DataType: models.DataTypeString, InputWidget: models.WidgetText},
		},
	}
	r := New(tmpl)
	vals := r.Values()

	if vals["country"].Str() != "CA" {
		t.Errorf("literal default not seeded: %v", vals["country"])
	}
	if vals["subscribe"].Kind() != models.ValueBool || !vals["subscribe"].Bool() {
		t.Errorf("checkbox default not seeded: %v", vals["subscribe"])
	}
	if vals["topics"].Kind() != models.ValueList || len(vals["topics"].List()) != 0 {
		t.Errorf("multiselect should seed an empty sequence: %v", vals["topics"])
	}
	if vals["name"].Kind() != models.ValueString || vals["name"].Str() != "" {
		t.Errorf("unset default should seed empty string: %v", vals["name"])
	}
}

func TestRuntimeBackClampsAndKeepsValues(t *testing.T) {
	r := New(wizardTemplate())
	r.Back()
	if r.Page() != 0 {
		t.Errorf("Back at page 0 must clamp, got %d", r.Page())
	}

	r.SetValue("name", models.StringValue("Ada"))
	r.SetValue("email", models.StringValue("ada@example.com"))
	r.Next()
	r.SetValue("company", models.StringValue("ACME"))
	r.Back()
	if r.Page() != 0 {
		t.Errorf("expected page 0 after Back, got %d", r.Page())
	}
	if r.Values()["company"].Str() != "ACME" {
		t.Error("Back must not discard entered values")
	}
}

func TestRuntimeNextClampsAtLastPage(t *testing.T) {
	tmpl := &models.Template{
		ID:     "tpl_single",
		Title:  "Single",
		Fields: []models.FieldDefinition{textField("only", false)},
	}
	r := New(tmpl)
	if !r.Next() {
		t.Fatal("valid page should pass")
	}
	if r.Page() != 0 {
		t.Errorf("Next on the last page must clamp, got %d", r.Page())
	}
}

func TestRuntimeSubmitValidatesAllPages(t *testing.T) {
	r := New(wizardTemplate())
	r.SetValue("name", models.StringValue("Ada"))
	r.SetValue("email", models.StringValue("ada@example.com"))
	r.Next()
	r.Next()
	// feedback on the last page is still empty.
	sink := &captureSink{}
	if err := r.Submit(context.Background(), sink); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if sink.calls != 0 {
		t.Error("sink must not be reached on validation failure")
	}

	// Clearing an earlier page's field after navigating past it still blocks.
	r.SetValue("feedback", models.StringValue("ok"))
	r.SetValue("email", models.StringValue(""))
	if err := r.Submit(context.Background(), sink); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for earlier page, got %v", err)
	}
	if r.Errors()["email"] == "" {
		t.Errorf("expected email error, got %v", r.Errors())
	}
}

func TestRuntimeSubmitSinkFailureKeepsEditing(t *testing.T) {
	r := New(wizardTemplate())
	r.SetValue("name", models.StringValue("Ada"))
	r.SetValue("email", models.StringValue("ada@example.com"))
	r.SetValue("feedback", models.StringValue("fine"))

	sink := &captureSink{err: fmt.Errorf("store down")}
	if err := r.Submit(context.Background(), sink); err == nil {
		t.Fatal("expected sink error to surface")
	}
	if r.State() != StateEditing {
		t.Errorf("failed submit must stay editable, got %s", r.State())
	}

	// Retry succeeds once the sink recovers.
	sink.err = nil
	if err := r.Submit(context.Background(), sink); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if r.State() != StateSubmitted {
		t.Errorf("expected Submitted after retry, got %s", r.State())
	}
}

func TestRuntimeSubmitTwice(t *testing.T) {
	tmpl := &models.Template{ID: "tpl_once", Title: "Once", Fields: []models.FieldDefinition{textField("a", false)}}
	r := New(tmpl)
	sink := &captureSink{}
	if err := r.Submit(context.Background(), sink); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if err := r.Submit(context.Background(), sink); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if sink.calls != 1 {
		t.Errorf("sink called %d times, want 1", sink.calls)
	}
	// Mutations after submit are ignored.
	r.SetValue("a", models.StringValue("late"))
	if r.Values()["a"].Str() == "late" {
		t.Error("SetValue after submit must be a no-op")
	}
}

func TestRuntimeMultiValueField(t *testing.T) {
	tmpl := &models.Template{
		ID:    "tpl_multi",
		Title: "Multi",
		Fields: []models.FieldDefinition{
			{
				FieldKey:    "langs",
				Label:       "Languages",
				DataType:    models.DataTypeString,
				InputWidget: models.WidgetCheckbox,
				Required:    true,
				Options:     []models.Option{{Label: "Go", Value: "go"}, {Label: "Rust", Value: "rust"}},
			},
		},
	}
	r := New(tmpl)
	sink := &captureSink{}
	if err := r.Submit(context.Background(), sink); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("empty required group should fail, got %v", err)
	}

	r.SetValue("langs", models.ListValue("go", "rust"))
	if err := r.Submit(context.Background(), sink); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	got := sink.values["langs"].List()
	if len(got) != 2 || got[0] != "go" || got[1] != "rust" {
		t.Errorf("sequence order lost: %v", got)
	}
}
