package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/formweave/formweave/internal/models"
)

func textField(key string) models.FieldDefinition {
	return models.FieldDefinition{
		FieldKey:    key,
		Label:       key,
		DataType:    models.DataTypeString,
		InputWidget: models.WidgetText,
	}
}

// fakeSaver records save calls and assigns IDs the way the template service does.
type fakeSaver struct {
	created int
	updated int
	lastID  string
}

func (s *fakeSaver) Create(ctx context.Context, id models.Identity, t *models.Template) (*models.Template, error) {
	s.created++
	cp := *t
	cp.ID = "tpl_fake"
	s.lastID = cp.ID
	return &cp, nil
}

func (s *fakeSaver) Update(ctx context.Context, id models.Identity, t *models.Template) (*models.Template, error) {
	s.updated++
	cp := *t
	s.lastID = cp.ID
	return &cp, nil
}

func TestBuilderFieldOperations(t *testing.T) {
	b := New()
	b.AddField(textField("name"))
	b.AddPageBreak()
	b.AddField(textField("email"))

	fields := b.Fields()
	if len(fields) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(fields))
	}
	if !fields[1].IsPageBreak {
		t.Error("second entry should be a page break")
	}

	if err := b.RemoveField(1); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(b.Fields()) != 2 {
		t.Errorf("expected 2 entries after remove, got %d", len(b.Fields()))
	}
	if err := b.RemoveField(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestBuilderMoveField(t *testing.T) {
	b := New()
	b.AddField(textField("a"))
	b.AddField(textField("b"))
	b.AddField(textField("c"))

	if err := b.MoveField(2, true); err != nil {
		t.Fatalf("move up failed: %v", err)
	}
	got := b.Fields()
	if got[1].FieldKey != "c" || got[2].FieldKey != "b" {
		t.Errorf("unexpected order after move up: %q, %q", got[1].FieldKey, got[2].FieldKey)
	}

	// Moving past either end is a no-op, not an error.
	if err := b.MoveField(0, true); err != nil {
		t.Fatalf("move past start errored: %v", err)
	}
	if b.Fields()[0].FieldKey != "a" {
		t.Error("move past start should not change order")
	}
	if err := b.MoveField(2, false); err != nil {
		t.Fatalf("move past end errored: %v", err)
	}
	if err := b.MoveField(7, false); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestBuilderOptionOperations(t *testing.T) {
	b := New()
	sel := textField("color")
	sel.InputWidget = models.WidgetSelect
	b.AddField(sel)
	b.AddPageBreak()

	if err := b.AddOption(0, models.Option{Label: "Red", Value: "red"}); err != nil {
		t.Fatalf("add option failed: %v", err)
	}
	if err := b.AddOption(0, models.Option{Label: "Green", Value: "green"}); err != nil {
		t.Fatalf("add option failed: %v", err)
	}
	if err := b.UpdateOption(0, 1, models.Option{Label: "Blue", Value: "blue"}); err != nil {
		t.Fatalf("update option failed: %v", err)
	}
	if got := b.Fields()[0].Options[1].Value; got != "blue" {
		t.Errorf("option not updated, got %q", got)
	}
	if err := b.RemoveOption(0, 0); err != nil {
		t.Fatalf("remove option failed: %v", err)
	}
	if got := b.Fields()[0].Options; len(got) != 1 || got[0].Value != "blue" {
		t.Errorf("unexpected options after removal: %v", got)
	}

	// Page breaks carry no options.
	if err := b.AddOption(1, models.Option{Label: "X", Value: "x"}); !errors.Is(err, ErrNotAnInputField) {
		t.Errorf("expected ErrNotAnInputField, got %v", err)
	}
	if err := b.UpdateOption(0, 9, models.Option{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestBuilderSave(t *testing.T) {
	b := New()
	b.SetTitle("Signup")
	b.SetDescription("basic signup form")
	b.AddField(textField("name"))

	saver := &fakeSaver{}
	id := models.Identity{UserID: "u1", Role: models.RoleUser, Authenticated: true}

	saved, err := b.Save(context.Background(), saver, id)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if saver.created != 1 || saver.updated != 0 {
		t.Errorf("expected one create, got created=%d updated=%d", saver.created, saver.updated)
	}
	if saved.ID != "tpl_fake" {
		t.Errorf("unexpected saved ID %q", saved.ID)
	}

	// A second save updates in place using the remembered ID.
	b.SetTitle("Signup v2")
	saved, err = b.Save(context.Background(), saver, id)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if saver.updated != 1 {
		t.Errorf("expected an update on second save, got %d", saver.updated)
	}
	if saved.Title != "Signup v2" {
		t.Errorf("unexpected title %q", saved.Title)
	}
}

func TestBuilderSavePreconditions(t *testing.T) {
	b := New()
	saver := &fakeSaver{}
	id := models.Identity{UserID: "u1", Authenticated: true}

	if _, err := b.Save(context.Background(), saver, id); !errors.Is(err, models.ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}

	b.SetTitle("Breaks only")
	b.AddPageBreak()
	if _, err := b.Save(context.Background(), saver, id); !errors.Is(err, models.ErrNoInputFields) {
		t.Errorf("expected ErrNoInputFields, got %v", err)
	}
	if saver.created != 0 {
		t.Error("invalid template must never reach the saver")
	}
}

func TestBuilderLoad(t *testing.T) {
	cap := 5
	tmpl := &models.Template{
		ID:             "tpl_existing",
		Title:          "Existing",
		Fields:         []models.FieldDefinition{textField("a")},
		IsPublic:       true,
		AllowAnonymous: false,
		MaxResponses:   &cap,
	}
	b := Load(tmpl)
	got := b.Template()
	if got.ID != "tpl_existing" || got.Title != "Existing" || !got.IsPublic || got.AllowAnonymous {
		t.Errorf("load lost settings: %+v", got)
	}
	if got.MaxResponses == nil || *got.MaxResponses != 5 {
		t.Errorf("load lost response cap: %v", got.MaxResponses)
	}

	// Mutating the builder must not touch the source template.
	b.AddField(textField("b"))
	if len(tmpl.Fields) != 1 {
		t.Error("builder mutation leaked into the loaded template")
	}
}
