// Package models defines the core data structures for FormWeave.
//
// It includes the form schema types (field definitions, templates), submitted
// response records, assignment records, and the identity context shared across
// modules.
package models

import (
	"errors"
	"fmt"
)

// DataType describes the logical type of the value a field collects.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeNumber   DataType = "number"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDate     DataType = "date"
	DataTypeDatetime DataType = "datetime"
	DataTypeEmail    DataType = "email"
	DataTypeURL      DataType = "url"
	DataTypeFile     DataType = "file"
	DataTypeJSON     DataType = "json"
	// DataTypeNone is only legal for page-break entries, which carry no value.
	DataTypeNone DataType = "none"
)

// InputWidget describes the input control a field renders with.
type InputWidget string

const (
	WidgetText        InputWidget = "text"
	WidgetNumber      InputWidget = "number"
	WidgetEmail       InputWidget = "email"
	WidgetPassword    InputWidget = "password"
	WidgetTextarea    InputWidget = "textarea"
	WidgetSelect      InputWidget = "select"
	WidgetMultiselect InputWidget = "multiselect"
	WidgetRadio       InputWidget = "radio"
	WidgetCheckbox    InputWidget = "checkbox"
	WidgetDate        InputWidget = "date"
	WidgetDatetime    InputWidget = "datetime"
	WidgetFile        InputWidget = "file"
	WidgetURL         InputWidget = "url"
	WidgetColor       InputWidget = "color"
	WidgetRange       InputWidget = "range"
	// WidgetPageBreak splits the field list into wizard pages. Entries using it
	// must set IsPageBreak and never hold a value.
	WidgetPageBreak InputWidget = "pageBreak"
)

// Error variables for field definition validation.
var (
	ErrFieldKeyRequired     = errors.New("fieldKey is required for non-page-break fields")
	ErrFieldLabelRequired   = errors.New("label is required for non-page-break fields")
	ErrInvalidDataType      = errors.New("invalid data type")
	ErrInvalidInputWidget   = errors.New("invalid input widget")
	ErrOptionsRequired      = errors.New("options are required for this input widget")
	ErrEmptyOptionLabel     = errors.New("option label cannot be empty")
	ErrDataTypeMismatch     = errors.New("input widget requires a matching data type")
	ErrPageBreakWithKey     = errors.New("page-break entries cannot carry a field key")
	ErrDuplicateFieldKey    = errors.New("duplicate field key in template")
	ErrInvalidVisibilityRef = errors.New("visibility condition references an unknown field")
)

// IsValidDataType checks if the given data type is supported.
func IsValidDataType(dt DataType) bool {
	switch dt {
	case DataTypeString, DataTypeNumber, DataTypeBoolean, DataTypeDate, DataTypeDatetime,
		DataTypeEmail, DataTypeURL, DataTypeFile, DataTypeJSON, DataTypeNone:
		return true
	default:
		return false
	}
}

// IsValidInputWidget checks if the given input widget is supported.
func IsValidInputWidget(w InputWidget) bool {
	switch w {
	case WidgetText, WidgetNumber, WidgetEmail, WidgetPassword, WidgetTextarea,
		WidgetSelect, WidgetMultiselect, WidgetRadio, WidgetCheckbox, WidgetDate,
		WidgetDatetime, WidgetFile, WidgetURL, WidgetColor, WidgetRange, WidgetPageBreak:
		return true
	default:
		return false
	}
}

// Option is one selectable {label, value} pair for choice widgets.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ValidationRule holds the optional per-field constraints. Nil pointers mean
// the constraint is absent.
type ValidationRule struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// VisibilityCondition hides a field unless the referenced field's current
// value equals EqualsValue.
type VisibilityCondition struct {
	DependsOnFieldKey string `json:"dependsOnFieldKey"`
	EqualsValue       Value  `json:"equalsValue"`
}

// FieldDefinition is one entry in a template's ordered field list. It is a
// tagged variant: IsPageBreak selects between a value-carrying input entry and
// a pure page separator.
type FieldDefinition struct {
	FieldKey     string               `json:"fieldKey,omitempty"`
	Label        string               `json:"label,omitempty"`
	DataType     DataType             `json:"dataType,omitempty"`
	InputWidget  InputWidget          `json:"inputWidget,omitempty"`
	Placeholder  string               `json:"placeholder,omitempty"`
	HelpText     string               `json:"helpText,omitempty"`
	Required     bool                 `json:"required,omitempty"`
	DefaultValue Value                `json:"defaultValue,omitempty"`
	Options      []Option             `json:"options,omitempty"`
	Validation   *ValidationRule      `json:"validationRule,omitempty"`
	VisibleIf    *VisibilityCondition `json:"visibilityCondition,omitempty"`
	IsPageBreak  bool                 `json:"isPageBreak,omitempty"`
}

// PageBreak constructs a page separator entry.
func PageBreak() FieldDefinition {
	return FieldDefinition{
		DataType:    DataTypeNone,
		InputWidget: WidgetPageBreak,
		IsPageBreak: true,
	}
}

// IsMultiValue reports whether the field collects an ordered sequence of
// option values. A checkbox with a non-empty options list behaves as a
// multi-value set; without options it is a single boolean.
func (f *FieldDefinition) IsMultiValue() bool {
	if f.InputWidget == WidgetMultiselect {
		return true
	}
	return f.InputWidget == WidgetCheckbox && len(f.Options) > 0
}

// IsNumeric reports whether min/max bounds apply to this field's values.
func (f *FieldDefinition) IsNumeric() bool {
	return f.DataType == DataTypeNumber || f.InputWidget == WidgetNumber
}

// DisplayName returns the label, falling back to the field key.
func (f *FieldDefinition) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.FieldKey
}

// Validate performs structural validation on a single field definition.
// Page-break entries are normalized to DataTypeNone, mirroring how the
// authoring side always treats separators as value-less.
func (f *FieldDefinition) Validate() error {
	if f.IsPageBreak || f.InputWidget == WidgetPageBreak {
		f.IsPageBreak = true
		f.DataType = DataTypeNone
		if f.FieldKey != "" {
			return fmt.Errorf("%w: %q", ErrPageBreakWithKey, f.FieldKey)
		}
		return nil
	}

	if f.FieldKey == "" {
		return ErrFieldKeyRequired
	}
	if f.Label == "" {
		return fmt.Errorf("%w: field %q", ErrFieldLabelRequired, f.FieldKey)
	}
	if !IsValidDataType(f.DataType) || f.DataType == DataTypeNone {
		return fmt.Errorf("%w: field %q has data type %q", ErrInvalidDataType, f.FieldKey, f.DataType)
	}
	if !IsValidInputWidget(f.InputWidget) {
		return fmt.Errorf("%w: field %q has widget %q", ErrInvalidInputWidget, f.FieldKey, f.InputWidget)
	}

	needsOptions := f.InputWidget == WidgetSelect || f.InputWidget == WidgetMultiselect || f.InputWidget == WidgetRadio
	if needsOptions && len(f.Options) == 0 {
		return fmt.Errorf("%w: field %q with widget %q", ErrOptionsRequired, f.FieldKey, f.InputWidget)
	}
	for _, opt := range f.Options {
		if opt.Label == "" {
			return fmt.Errorf("%w: field %q", ErrEmptyOptionLabel, f.FieldKey)
		}
	}

	// Widget/data type pairing rules carried over from the schema authoring
	// checks: a bare checkbox is boolean, and number/email/url widgets must
	// collect values of the same logical type.
	switch f.InputWidget {
	case WidgetCheckbox:
		if len(f.Options) == 0 && f.DataType != DataTypeBoolean {
			return fmt.Errorf("%w: checkbox field %q must have boolean data type", ErrDataTypeMismatch, f.FieldKey)
		}
	case WidgetNumber:
		if f.DataType != DataTypeNumber {
			return fmt.Errorf("%w: number field %q must have number data type", ErrDataTypeMismatch, f.FieldKey)
		}
	case WidgetEmail:
		if f.DataType != DataTypeEmail {
			return fmt.Errorf("%w: email field %q must have email data type", ErrDataTypeMismatch, f.FieldKey)
		}
	case WidgetURL:
		if f.DataType != DataTypeURL {
			return fmt.Errorf("%w: url field %q must have url data type", ErrDataTypeMismatch, f.FieldKey)
		}
	}

	return nil
}
