package schema

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/formweave/formweave/internal/models"
)

// Validation message formats. Messages are keyed by field and shown inline,
// so they read as "<label> <constraint>".
const (
	msgRequired  = "%s is required"
	msgMin       = "%s must be ≥ %s"
	msgMax       = "%s must be ≤ %s"
	msgMinLength = "%s must have at least %d characters"
	msgMaxLength = "%s must have at most %d characters"
	msgPattern   = "%s does not match required format"
)

// Visible reports whether a field is currently shown given the value map.
// A field with no visibility condition is always visible; otherwise it is
// hidden unless the referenced field's current value equals the condition's
// value. A condition comparing against a missing entry matches only when the
// condition expects null.
func Visible(f models.FieldDefinition, values models.ValueMap) bool {
	if f.VisibleIf == nil {
		return true
	}
	current := values[f.VisibleIf.DependsOnFieldKey]
	return current.Equal(f.VisibleIf.EqualsValue)
}

// ValidateField checks a single value against its field definition and
// returns a user-facing message, or "" when the value passes. Checks run in
// order: required-ness, numeric bounds, length bounds, pattern. Page-break
// entries never produce errors. The function is pure and never panics;
// malformed rules degrade to permissive behavior.
func ValidateField(f models.FieldDefinition, value models.Value) string {
	if f.IsPageBreak {
		return ""
	}
	label := f.DisplayName()

	if f.Required && value.IsEmpty() {
		return fmt.Sprintf(msgRequired, label)
	}

	rule := f.Validation
	if rule == nil {
		return ""
	}

	// Numeric bounds apply only when the field is numeric and the value has a
	// numeric reading. Non-numeric input skips bound checks rather than
	// failing collection.
	if f.IsNumeric() && !value.IsEmpty() {
		if num, ok := value.AsNumber(); ok {
			if rule.Min != nil && num < *rule.Min {
				return fmt.Sprintf(msgMin, label, formatBound(*rule.Min))
			}
			if rule.Max != nil && num > *rule.Max {
				return fmt.Sprintf(msgMax, label, formatBound(*rule.Max))
			}
		}
	}

	// Length bounds apply to strings and sequences.
	if length, ok := value.Length(); ok {
		if rule.MinLength != nil && length < *rule.MinLength {
			return fmt.Sprintf(msgMinLength, label, *rule.MinLength)
		}
		if rule.MaxLength != nil && length > *rule.MaxLength {
			return fmt.Sprintf(msgMaxLength, label, *rule.MaxLength)
		}
	}

	// Pattern applies only to non-empty strings. An unparseable stored
	// pattern is treated as "no constraint" so a template-authoring mistake
	// never blocks respondents.
	if rule.Pattern != "" && value.Kind() == models.ValueString && value.Str() != "" {
		re, err := regexp.Compile(rule.Pattern)
		if err == nil && !re.MatchString(value.Str()) {
			return fmt.Sprintf(msgPattern, label)
		}
	}

	return ""
}

// ValidatePage applies ValidateField to every currently visible field on the
// page and collects the non-empty results keyed by field. A page is valid iff
// the returned map is empty. Hidden fields are skipped: a value behind an
// unsatisfied visibility condition is neither shown nor enforced.
func ValidatePage(pageFields []models.FieldDefinition, values models.ValueMap) map[string]string {
	errs := make(map[string]string)
	for _, f := range pageFields {
		if f.IsPageBreak || !Visible(f, values) {
			continue
		}
		if msg := ValidateField(f, values[f.FieldKey]); msg != "" {
			errs[f.FieldKey] = msg
		}
	}
	return errs
}

func formatBound(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
