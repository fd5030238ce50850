// Package validation holds the contact form rules. Everything here is pure.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCompany     = "company"
	FieldBudgetRange = "budgetRange"
	FieldProjectType = "projectType"
	FieldMessage     = "message"
)

// Error keys. Presentation maps them to text with Message.
const (
	NameRequired    = "name_required"
	EmailRequired   = "email_required"
	EmailInvalid    = "email_invalid"
	MessageRequired = "message_required"
	MessageMin      = "message_min"
)

// MinMessageLength is counted in runes after trimming.
const MinMessageLength = 10

// RequiredFields are the fields Submit touches before validating.
var RequiredFields = []string{FieldName, FieldEmail, FieldMessage}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var messages = map[string]string{
	NameRequired:    "Name is required",
	EmailRequired:   "Email is required",
	EmailInvalid:    "Please enter a valid email",
	MessageRequired: "Message is required",
	MessageMin:      "Message must be at least 10 characters",
}

// Values is a contact form draft.
type Values struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	BudgetRange string
	ProjectType string
	Message     string
}

// Get returns the value of the named field.
func (v Values) Get(field string) string {
	switch field {
	case FieldName:
		return v.Name
	case FieldEmail:
		return v.Email
	case FieldPhone:
		return v.Phone
	case FieldCompany:
		return v.Company
	case FieldBudgetRange:
		return v.BudgetRange
	case FieldProjectType:
		return v.ProjectType
	case FieldMessage:
		return v.Message
	}
	return ""
}

// With returns a copy of v with field set to value. Unknown fields are ignored.
func (v Values) With(field, value string) Values {
	switch field {
	case FieldName:
		v.Name = value
	case FieldEmail:
		v.Email = value
	case FieldPhone:
		v.Phone = value
	case FieldCompany:
		v.Company = value
	case FieldBudgetRange:
		v.BudgetRange = value
	case FieldProjectType:
		v.ProjectType = value
	case FieldMessage:
		v.Message = value
	}
	return v
}

// KnownField reports whether field belongs to the form.
func KnownField(field string) bool {
	switch field {
	case FieldName, FieldEmail, FieldPhone, FieldCompany, FieldBudgetRange, FieldProjectType, FieldMessage:
		return true
	}
	return false
}

// Errors maps a field to its error key.
type Errors map[string]string

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Messages maps each field to its display text.
func (e Errors) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[k] = Message(v)
	}
	return out
}

// Message returns the display text for an error key.
func Message(key string) string {
	if m, ok := messages[key]; ok {
		return m
	}
	return key
}

// check returns the error key for one field, or "" when valid.
func check(field, value string) string {
	trimmed := strings.TrimSpace(value)
	switch field {
	case FieldName:
		if trimmed == "" {
			return NameRequired
		}
	case FieldEmail:
		if trimmed == "" {
			return EmailRequired
		}
		if !emailPattern.MatchString(value) {
			return EmailInvalid
		}
	case FieldMessage:
		if trimmed == "" {
			return MessageRequired
		}
		if utf8.RuneCountInString(trimmed) < MinMessageLength {
			return MessageMin
		}
	}
	return ""
}

// ValidateField re-checks one field against current and returns the updated
// error set. The bool is true when the whole set is empty afterwards.
// current is never modified.
func ValidateField(field, value string, current Errors) (Errors, bool) {
	next := current.Clone()
	if key := check(field, value); key != "" {
		next[field] = key
	} else {
		delete(next, field)
	}
	return next, len(next) == 0
}

// ValidateForm checks every field of v.
func ValidateForm(v Values) (Errors, bool) {
	errs := Errors{}
	for _, f := range RequiredFields {
		if key := check(f, v.Get(f)); key != "" {
			errs[f] = key
		}
	}
	return errs, len(errs) == 0
}

// IsBot reports whether the hidden honeypot field was filled in.
func IsBot(honeypot string) bool {
	return honeypot != ""
}
