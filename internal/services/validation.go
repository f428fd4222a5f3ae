package services

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"time"

	"github.com/formbase/formbase/internal/models"
)

// fieldOptions is the decoded form of FormField.Options.
type fieldOptions struct {
	Choices   []string `json:"choices,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// ValidateSubmissionData checks submitted values against a form's field
// definitions. The returned map is field name to first error; empty means
// valid. Unknown keys in data are ignored.
func ValidateSubmissionData(fields []models.FormField, data map[string]interface{}) map[string]string {
	errs := make(map[string]string)

	for _, field := range fields {
		value, present := data[field.Name]

		if !present || value == nil || value == "" {
			if field.Required {
				errs[field.Name] = "value is required"
			}
			continue
		}

		var opts fieldOptions
		if len(field.Options.JSON) > 0 {
			// Constraint decoding is best-effort; a malformed options blob
			// must not reject otherwise valid data.
			_ = json.Unmarshal(field.Options.JSON, &opts)
		}

		if msg := validateFieldValue(field.Type, value, opts); msg != "" {
			errs[field.Name] = msg
		}
	}

	return errs
}

func validateFieldValue(fieldType string, value interface{}, opts fieldOptions) string {
	switch fieldType {
	case models.FieldText, models.FieldTextarea:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		return validateString(s, opts)

	case models.FieldEmail:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return "invalid email address"
		}
		return validateString(s, opts)

	case models.FieldURL:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "invalid URL"
		}
		return validateString(s, opts)

	case models.FieldNumber:
		n, ok := toFloat(value)
		if !ok {
			return "expected a number"
		}
		if opts.Min != nil && n < *opts.Min {
			return fmt.Sprintf("must be at least %v", *opts.Min)
		}
		if opts.Max != nil && n > *opts.Max {
			return fmt.Sprintf("must be at most %v", *opts.Max)
		}
		return ""

	case models.FieldDate:
		s, ok := value.(string)
		if !ok {
			return "expected a date string"
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return "invalid date, expected YYYY-MM-DD"
			}
		}
		return ""

	case models.FieldSelect:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		if len(opts.Choices) == 0 {
			return ""
		}
		for _, choice := range opts.Choices {
			if s == choice {
				return ""
			}
		}
		return "value is not one of the allowed choices"

	case models.FieldCheckbox:
		if _, ok := value.(bool); !ok {
			return "expected a boolean"
		}
		return ""

	case models.FieldFile:
		// File fields carry an upload id; existence is checked at attach time.
		if _, ok := value.(string); !ok {
			return "expected an upload id"
		}
		return ""
	}

	return ""
}

func validateString(s string, opts fieldOptions) string {
	if opts.MinLength != nil && len(s) < *opts.MinLength {
		return fmt.Sprintf("must be at least %d characters", *opts.MinLength)
	}
	if opts.MaxLength != nil && len(s) > *opts.MaxLength {
		return fmt.Sprintf("must be at most %d characters", *opts.MaxLength)
	}
	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			// An uncompilable pattern is a form-author bug; do not punish
			// the submitter for it.
			return ""
		}
		if !re.MatchString(s) {
			return "value does not match the required pattern"
		}
	}
	return ""
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
