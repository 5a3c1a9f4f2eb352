// Package i18n resolves user-facing messages for the locales the API serves.
package i18n

import (
	"fmt"
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"

	"github.com/99minutos/users-api/internal/core/domain"
)

// Message keys.
const (
	KeyDeleted          = "message.deleted"
	KeyValidationFailed = "validation.failed"
	keyRuleFallback     = "rule.invalid"
)

// {0} is the field name, {1} the rule parameter.
var catalog = map[string]map[string]string{
	"en": {
		KeyDeleted:                     "Deleted successfully.",
		KeyValidationFailed:            "The given data was invalid.",
		keyRuleFallback:                "The {0} is invalid.",
		"rule." + domain.RuleRequired:  "The {0} field is required.",
		"rule." + domain.RuleEmail:     "The {0} must be a valid email address.",
		"rule." + domain.RuleMax:       "The {0} must not be greater than {1} characters.",
		"rule." + domain.RuleMin:       "The {0} must be at least {1} characters.",
		"rule." + domain.RuleNumeric:   "The {0} must be a number.",
		"rule." + domain.RuleOneOf:     "The {0} must be one of: {1}.",
		"rule." + domain.RuleConfirmed: "The {0} confirmation does not match.",
		"rule." + domain.RuleUnique:    "The {0} has already been taken.",
		"rule." + domain.RuleExists:    "The selected {0} is invalid.",
	},
	"es": {
		KeyDeleted:                     "Eliminado correctamente.",
		KeyValidationFailed:            "Los datos proporcionados no son válidos.",
		keyRuleFallback:                "El campo {0} no es válido.",
		"rule." + domain.RuleRequired:  "El campo {0} es obligatorio.",
		"rule." + domain.RuleEmail:     "El campo {0} debe ser un correo electrónico válido.",
		"rule." + domain.RuleMax:       "El campo {0} no debe ser mayor a {1} caracteres.",
		"rule." + domain.RuleMin:       "El campo {0} debe tener al menos {1} caracteres.",
		"rule." + domain.RuleNumeric:   "El campo {0} debe ser un número.",
		"rule." + domain.RuleOneOf:     "El campo {0} debe ser uno de: {1}.",
		"rule." + domain.RuleConfirmed: "La confirmación de {0} no coincide.",
		"rule." + domain.RuleUnique:    "El valor del campo {0} ya está en uso.",
		"rule." + domain.RuleExists:    "El {0} seleccionado no es válido.",
	},
}

// Translator looks up catalog messages by locale.
type Translator struct {
	uni      *ut.UniversalTranslator
	fallback string
}

// New builds a Translator for every catalog locale. Lookups for unknown
// locales use fallback, which must be one of "en" or "es".
func New(fallback string) (*Translator, error) {
	supported := map[string]locales.Translator{"en": en.New(), "es": es.New()}

	fb, ok := supported[fallback]
	if !ok {
		return nil, fmt.Errorf("i18n: unsupported fallback locale %q", fallback)
	}

	all := make([]locales.Translator, 0, len(supported))
	for _, l := range supported {
		all = append(all, l)
	}
	uni := ut.New(fb, all...)

	for loc, messages := range catalog {
		trans, found := uni.GetTranslator(loc)
		if !found {
			return nil, fmt.Errorf("i18n: translator for %q not registered", loc)
		}
		for key, text := range messages {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("i18n: add %s/%s: %w", loc, key, err)
			}
		}
	}

	return &Translator{uni: uni, fallback: fallback}, nil
}

// Locale picks the best supported locale for an Accept-Language header value.
func (t *Translator) Locale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return t.fallback
	}
	for _, tag := range tags {
		base, _ := tag.Base()
		if _, ok := catalog[base.String()]; ok {
			return base.String()
		}
	}
	return t.fallback
}

// T returns the message for key in locale, or key itself when missing.
func (t *Translator) T(locale, key string, params ...string) string {
	trans, _ := t.uni.FindTranslator(locale, t.fallback)
	msg, err := trans.T(key, params...)
	if err != nil {
		return key
	}
	return msg
}

// Violation renders a single validation failure.
func (t *Translator) Violation(locale string, v domain.Violation) string {
	field := strings.ReplaceAll(v.Field, "_", " ")
	trans, _ := t.uni.FindTranslator(locale, t.fallback)
	msg, err := trans.T("rule."+v.Rule, field, v.Param)
	if err != nil {
		msg, _ = trans.T(keyRuleFallback, field)
	}
	return msg
}

// Fields groups the violations of verr by field.
func (t *Translator) Fields(locale string, verr *domain.ValidationError) map[string][]string {
	out := make(map[string][]string, len(verr.Violations))
	for _, v := range verr.Violations {
		out[v.Field] = append(out[v.Field], t.Violation(locale, v))
	}
	return out
}
