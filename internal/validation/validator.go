// Package validation checks request values with go-playground/validator and
// reports failures as domain validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/booklog/booklog-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with Booklog's custom tags:
//
//	notblank   string has a non-space character
//	nickname   1-40 printable characters, no control characters
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // registration fails only for empty tags
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	//nolint:errcheck
	_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
		return validNickname(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates a struct.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, "")
	}
	return nil
}

// Var validates a single value against tag; field names it in the error.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		return v.formatError(err, field)
	}
	return nil
}

func (v *Validator) formatError(err error, field string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		name := e.Field()
		if field != "" {
			name = field
		}
		fieldErrors[name] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "nickname":
		return "must be 1 to 40 printable characters"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}

const maxNicknameRunes = 40

func validNickname(s string) bool {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
		n++
	}
	return n > 0 && n <= maxNicknameRunes
}
