package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Rule names reported in a Violation.
const (
	RuleRequired  = "required"
	RuleEmail     = "email"
	RuleMax       = "max"
	RuleMin       = "min"
	RuleNumeric   = "numeric"
	RuleOneOf     = "oneof"
	RuleConfirmed = "confirmed"
	RuleUnique    = "unique"
	RuleExists    = "exists"
)

var ErrValidation = errors.New("validation failed")

// Violation is a single failed rule on a single input field.
type Violation struct {
	Field string
	Rule  string
	Param string
}

// ValidationError collects every rule an input failed. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Param != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", v.Field, v.Rule, v.Param))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Rule))
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a violation.
func (e *ValidationError) Add(field, rule, param string) {
	e.Violations = append(e.Violations, Violation{Field: field, Rule: rule, Param: param})
}

// Has reports whether field already failed at least one rule.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Err returns e when it holds violations and nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
