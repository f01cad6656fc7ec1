package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxRoomTitleLength  = 50
	MaxRoomDescLength   = 100
	MaxMemberNameLength = 50
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator provides validation methods
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, &ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Required checks if a string is not blank
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "此欄位為必填")
		return false
	}
	return true
}

// MaxLength checks the value has at most max code points
func (v *Validator) MaxLength(field, value string, max int) bool {
	if utf8.RuneCountInString(value) > max {
		v.AddError(field, "長度不能超過 "+strconv.Itoa(max)+" 個字元")
		return false
	}
	return true
}

// ValidateRoomTitle validates a room title
func (v *Validator) ValidateRoomTitle(field, value string) bool {
	if !v.Required(field, value) {
		return false
	}
	return v.MaxLength(field, value, MaxRoomTitleLength)
}

// ValidateRoomDescription validates an optional room description
func (v *Validator) ValidateRoomDescription(field, value string) bool {
	return v.MaxLength(field, value, MaxRoomDescLength)
}

// ValidateRoomPassword validates an optional 6 digit room password
func (v *Validator) ValidateRoomPassword(field, value string) bool {
	if value == "" {
		return true
	}
	if err := ValidateRoomPassword(value); err != nil {
		v.AddError(field, "聊天室密碼必須為 6 位數字")
		return false
	}
	return true
}

// ValidateMemberName validates the display name a member uses inside a room
func (v *Validator) ValidateMemberName(field, value string) bool {
	if !v.Required(field, value) {
		return false
	}
	return v.MaxLength(field, value, MaxMemberNameLength)
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes and control characters
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
