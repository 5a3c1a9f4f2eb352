// Package validation applies declarative field rules to service inputs and
// reports failures as domain.Violation values keyed by the JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/users-api/internal/core/domain"
)

// Validator wraps go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that names fields after their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s against its `validate` tags and appends every failure to
// verr. The returned error is non-nil only when s cannot be validated at all.
func (val *Validator) Struct(s any, verr *domain.ValidationError) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, fe := range ve {
		rule, param := ruleOf(fe)
		verr.Add(fe.Field(), rule, param)
	}
	return nil
}

// Var validates a single value under field. Failures are appended to verr.
func (val *Validator) Var(field string, value any, tag string, verr *domain.ValidationError) error {
	err := val.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, fe := range ve {
		rule, param := ruleOf(fe)
		verr.Add(field, rule, param)
	}
	return nil
}

// ruleOf maps a validator tag onto the rule vocabulary used in responses.
func ruleOf(fe validator.FieldError) (rule, param string) {
	switch fe.Tag() {
	case "eqfield":
		return domain.RuleConfirmed, ""
	case "required":
		return domain.RuleRequired, ""
	case "email":
		return domain.RuleEmail, ""
	case "numeric":
		return domain.RuleNumeric, ""
	case "min":
		return domain.RuleMin, fe.Param()
	case "max":
		return domain.RuleMax, fe.Param()
	case "oneof":
		return domain.RuleOneOf, fe.Param()
	default:
		return fe.Tag(), fe.Param()
	}
}
