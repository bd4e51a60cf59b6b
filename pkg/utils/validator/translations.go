package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// registerCustomTranslations registers translations for custom validation rules.
func (v *Validator) registerCustomTranslations() {
	messages := map[string]map[string]string{
		LangEN: {
			TagNotBlank:     "{0} must not be blank",
			TagNoWhitespace: "{0} must not contain whitespace characters",
			TagSlug:         "{0} must be a valid URL slug (lowercase letters, numbers, and hyphens)",
		},
		LangZH: {
			TagNotBlank:     "{0}不能为空白",
			TagNoWhitespace: "{0}不能包含空白字符",
			TagSlug:         "{0}必须是有效的URL别名（小写字母、数字和连字符）",
		},
	}

	for lang, translations := range messages {
		trans := v.GetTranslator(lang)
		for tag, message := range translations {
			registerTranslation(v.validate, trans, tag, message)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
