// Package validate wraps go-playground/validator and converts its failures into
// field-level validation errors keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return toSnake(f.Name)
			}
			return name
		})
		instance = v
	})
	return instance
}

// Struct validates s and returns a VALIDATION_ERROR AppError with one detail per failing field.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.BadRequest(err.Error())
	}
	return apperrors.Validation("validation failed", Details(ve))
}

// Details maps each failing field to a short reason.
func Details(ve validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		field := fieldPath(fe)
		if _, seen := details[field]; seen {
			continue
		}
		details[field] = Reason(fe)
	}
	return details
}

// Merge combines several validation failures into one error, ignoring nils.
// Non-validation errors are returned as-is.
func Merge(errs ...error) error {
	details := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		appErr, ok := apperrors.As(err)
		if !ok || appErr.Code != apperrors.CodeValidation {
			return err
		}
		for k, v := range appErr.Details {
			if _, seen := details[k]; !seen {
				details[k] = v
			}
		}
	}
	if len(details) == 0 {
		return nil
	}
	return apperrors.Validation("validation failed", details)
}

// Reason renders a single validator failure.
func Reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return "required"
	case "excluded_if", "excluded_unless":
		return "must be empty"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "ltefield":
		return "must not exceed " + toSnake(fe.Param())
	case "uuid", "uuid4":
		return "must be a valid id"
	case "dive":
		return "invalid element"
	}
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

// fieldPath drops the root struct name from the namespace: Victim.first_name -> first_name,
// Input.documents[0].file_date -> documents[0].file_date.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
