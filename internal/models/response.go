package models

import "time"

// ResponseField is one answered field: the key, the label as it read at
// submit time, and the submitted value.
type ResponseField struct {
	FieldKey string `json:"fieldKey"`
	Label    string `json:"label"`
	Value    Value  `json:"value"`
}

// ResponseRecord is one immutable submitted answer set tied to a template.
// Records are append-only and never updated in place.
type ResponseRecord struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`

	// RespondentID is empty for anonymous submissions.
	RespondentID string `json:"respondentId,omitempty"`
	// RespondentEmail identifies anonymous respondents when the template
	// requires it.
	RespondentEmail string `json:"respondentEmail,omitempty"`

	Fields []ResponseField `json:"fields"`

	SubmittedAt time.Time `json:"submittedAt"`
}
