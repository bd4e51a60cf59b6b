// Package validator wraps go-playground/validator with JSON field names,
// en/zh error translations and the request rules used by the tutor API.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator wraps go-playground/validator with additional features.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
	mu       sync.RWMutex
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the global validator instance.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a new Validator instance with default configuration.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
		trans:    make(map[string]ut.Translator),
	}

	// 错误中的字段名使用 JSON tag
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := v.uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := v.uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	v.registerCustomRules()
	v.registerCustomTranslations()

	return v
}

// Validate validates a struct and returns English-translated errors.
func (v *Validator) Validate(s interface{}) error {
	if errs := v.ValidateWithLang(s, LangEN); errs != nil {
		return errs
	}
	return nil
}

// ValidateWithLang validates a struct and returns translated validation errors.
func (v *Validator) ValidateWithLang(s interface{}, lang string) *ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError("unknown", "unknown", err.Error())
	}

	return v.translateErrors(validationErrors, v.GetTranslator(lang))
}

// GetTranslator returns a translator for the specified language.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if trans, ok := v.trans[lang]; ok {
		return trans
	}
	return v.trans[LangEN]
}

// Engine returns the underlying validator.Validate instance.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

func (v *Validator) translateErrors(errs validator.ValidationErrors, trans ut.Translator) *ValidationErrors {
	result := &ValidationErrors{
		Errors: make([]FieldError, 0, len(errs)),
	}

	for _, err := range errs {
		result.Errors = append(result.Errors, FieldError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Param:   err.Param(),
			Message: err.Translate(trans),
		})
	}

	return result
}

// Struct validates a struct with the global validator.
func Struct(s interface{}) error {
	return Global().Validate(s)
}
