package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	digitsOnlyTag  = "digitsonly"
	digitsOnlyText = "only digits are allowed"

	intlPhoneTag   = "intlphone"
	intlPhoneText  = "must be a phone number in international format (e.g. 6281234567890)"
	intlPhoneRegex = regexp.MustCompile(`^[1-9][0-9]{7,14}$`)

	monthKeyTag  = "monthkey"
	monthKeyText = "must be a month in YYYY-MM format"

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(digitsOnlyTag, digitsOnlyValidation)
	RegisterCustomTranslation(digitsOnlyTag, digitsOnlyText)

	_ = Validate.RegisterValidation(intlPhoneTag, intlPhoneValidation)
	RegisterCustomTranslation(intlPhoneTag, intlPhoneText)

	_ = Validate.RegisterValidation(monthKeyTag, monthKeyValidation)
	RegisterCustomTranslation(monthKeyTag, monthKeyText)

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)

	RegisterCustomTranslation(requiredTag, requiredText, true)
	RegisterCustomTranslation(requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateValidationErrors maps each failing field to its english message.
func TranslateValidationErrors(errs validator.ValidationErrors) map[string]string {
	fldErrs := make(map[string]string, len(errs))
	for _, vErr := range errs {
		fldErrs[vErr.Field()] = vErr.Translate(Translator)
	}
	return fldErrs
}

// Custom Global Validators

// digitsOnlyValidation only allows ASCII digits.
func digitsOnlyValidation(fl validator.FieldLevel) bool {
	return IsDigits(fl.Field().String())
}

// intlPhoneValidation only allows digits-only phone numbers starting with a country code.
func intlPhoneValidation(fl validator.FieldLevel) bool {
	return intlPhoneRegex.MatchString(fl.Field().String())
}

// monthKeyValidation only allows YYYY-MM.
func monthKeyValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01", fl.Field().String())
	return err == nil
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
