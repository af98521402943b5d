// Package validation wraps go-playground/validator and reports failures as
// config.invalid_value errors keyed by JSON field path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/homeboy-cli/homeboy/apperror"
)

var validate *validator.Validate

// chmodMode accepts octal modes and comma-separated symbolic clauses.
var chmodMode = regexp.MustCompile(`^([0-7]{3,4}|[ugoa]*[-+=][rwxXst]*(,[ugoa]*[-+=][rwxXst]*)*)$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("chmod", func(fl validator.FieldLevel) bool {
		return IsChmodMode(fl.Field().String())
	})
}

// IsChmodMode reports whether s is usable as a chmod mode argument.
func IsChmodMode(s string) bool {
	return chmodMode.MatchString(s)
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return convert(err)
}

// Var validates a single value under the given field name.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.InvalidValue(field, value, reason(verrs[0]))
	}
	return apperror.Wrap(apperror.InternalUnexpected, err, err.Error())
}

func convert(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Wrap(apperror.InternalUnexpected, err, err.Error())
	}

	out := make([]*apperror.Error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperror.InvalidValue(fieldPath(fe), fe.Value(), reason(fe)))
	}
	return apperror.Multiple(out)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "chmod":
		return "must be an octal or symbolic chmod mode"
	case "hostname_rfc1123|ip":
		return "must be a hostname or IP address"
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}
