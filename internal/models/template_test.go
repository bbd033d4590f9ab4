package models

import (
	"errors"
	"testing"
)

func textField(key, label string) FieldDefinition {
	return FieldDefinition{
		FieldKey:    key,
		Label:       label,
		DataType:    DataTypeString,
		InputWidget: WidgetText,
	}
}

func TestValidateForSave(t *testing.T) {
	tmpl := Template{
		Title:  "Contact",
		Fields: []FieldDefinition{textField("name", "Name"), PageBreak(), textField("email", "Email")},
	}
	if err := tmpl.ValidateForSave(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}
}

func TestValidateForSaveTitleRequired(t *testing.T) {
	tmpl := Template{Fields: []FieldDefinition{textField("name", "Name")}}
	if err := tmpl.ValidateForSave(); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
}

func TestValidateForSaveNeedsInputField(t *testing.T) {
	tmpl := Template{Title: "Empty", Fields: []FieldDefinition{PageBreak(), PageBreak()}}
	if err := tmpl.ValidateForSave(); !errors.Is(err, ErrNoInputFields) {
		t.Errorf("expected ErrNoInputFields, got %v", err)
	}
}

func TestValidateForSaveDuplicateKey(t *testing.T) {
	tmpl := Template{
		Title:  "Dup",
		Fields: []FieldDefinition{textField("name", "Name"), textField("name", "Name again")},
	}
	if err := tmpl.ValidateForSave(); !errors.Is(err, ErrDuplicateFieldKey) {
		t.Errorf("expected ErrDuplicateFieldKey, got %v", err)
	}
}

func TestValidateForSaveVisibilityRef(t *testing.T) {
	f := textField("details", "Details")
	f.VisibleIf = &VisibilityCondition{DependsOnFieldKey: "missing", EqualsValue: StringValue("yes")}
	tmpl := Template{Title: "Cond", Fields: []FieldDefinition{f}}
	if err := tmpl.ValidateForSave(); !errors.Is(err, ErrInvalidVisibilityRef) {
		t.Errorf("expected ErrInvalidVisibilityRef, got %v", err)
	}
}

func TestFieldValidatePageBreakNormalization(t *testing.T) {
	f := FieldDefinition{InputWidget: WidgetPageBreak}
	if err := f.Validate(); err != nil {
		t.Fatalf("page break rejected: %v", err)
	}
	if !f.IsPageBreak || f.DataType != DataTypeNone {
		t.Errorf("page break not normalized: %+v", f)
	}

	withKey := FieldDefinition{InputWidget: WidgetPageBreak, FieldKey: "oops"}
	if err := withKey.Validate(); !errors.Is(err, ErrPageBreakWithKey) {
		t.Errorf("expected ErrPageBreakWithKey, got %v", err)
	}
}

func TestFieldValidateOptionsRequired(t *testing.T) {
	f := FieldDefinition{FieldKey: "color", Label: "Color", DataType: DataTypeString, InputWidget: WidgetSelect}
	if err := f.Validate(); !errors.Is(err, ErrOptionsRequired) {
		t.Errorf("expected ErrOptionsRequired, got %v", err)
	}
	f.Options = []Option{{Label: "Red", Value: "red"}}
	if err := f.Validate(); err != nil {
		t.Errorf("select with options rejected: %v", err)
	}
}

func TestFieldValidateDataTypePairing(t *testing.T) {
	f := FieldDefinition{FieldKey: "age", Label: "Age", DataType: DataTypeString, InputWidget: WidgetNumber}
	if err := f.Validate(); !errors.Is(err, ErrDataTypeMismatch) {
		t.Errorf("expected ErrDataTypeMismatch for number widget, got %v", err)
	}
	bare := FieldDefinition{FieldKey: "ok", Label: "OK", DataType: DataTypeString, InputWidget: WidgetCheckbox}
	if err := bare.Validate(); !errors.Is(err, ErrDataTypeMismatch) {
		t.Errorf("expected ErrDataTypeMismatch for bare checkbox, got %v", err)
	}
}

func TestIsMultiValue(t *testing.T) {
	multi := FieldDefinition{InputWidget: WidgetMultiselect}
	if !multi.IsMultiValue() {
		t.Error("multiselect is multi-value")
	}
	group := FieldDefinition{InputWidget: WidgetCheckbox, Options: []Option{{Label: "A", Value: "a"}}}
	if !group.IsMultiValue() {
		t.Error("checkbox with options is multi-value")
	}
	bare := FieldDefinition{InputWidget: WidgetCheckbox}
	if bare.IsMultiValue() {
		t.Error("bare checkbox is a single boolean")
	}
}

func TestCanViewAndCanEdit(t *testing.T) {
	tmpl := Template{OwnerID: "u1", IsPublic: false}
	owner := Identity{UserID: "u1", Role: RoleUser, Authenticated: true}
	other := Identity{UserID: "u2", Role: RoleUser, Authenticated: true}
	admin := Identity{UserID: "u3", Role: RoleAdmin, Authenticated: true}

	if !tmpl.CanEdit(owner) || !tmpl.CanView(owner) {
		t.Error("owner should view and edit")
	}
	if tmpl.CanEdit(other) || tmpl.CanView(other) {
		t.Error("stranger should neither view nor edit a private template")
	}
	if !tmpl.CanEdit(admin) {
		t.Error("admin should edit")
	}
	if tmpl.CanEdit(Anonymous()) {
		t.Error("anonymous should never edit")
	}

	tmpl.IsPublic = true
	if !tmpl.CanView(other) || !tmpl.CanView(Anonymous()) {
		t.Error("public template should be viewable by anyone")
	}
	if tmpl.CanEdit(other) {
		t.Error("public does not grant edit")
	}
}
