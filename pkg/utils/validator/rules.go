package validator

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank     = "notblank"     // Must contain at least one non-whitespace character
	TagNoWhitespace = "nowhitespace" // No whitespace characters (identifiers)
	TagSlug         = "slug"         // URL slug (lowercase alphanumeric and hyphens)
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
	_ = v.validate.RegisterValidation(TagSlug, validateSlug)
}

// validateNotBlank rejects empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateNoWhitespace validates that string contains no whitespace.
func validateNoWhitespace(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
}

// validateSlug validates URL slug format. Empty values pass; combine with required.
func validateSlug(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slugRegex.MatchString(value)
}
