package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// UseJSONFieldNames makes gin's validator report fields by their json tag, so
// messages read "newBalance must be at least 0" rather than using Go field names.
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}

// FormatValidationError turns validator errors into readable messages.
// Non-validation errors (malformed JSON, wrong types) yield nil.
func FormatValidationError(err error) []string {
	var errs []string

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()

			switch tag {
			case "required":
				errs = append(errs, fmt.Sprintf("%s is required", field))
			case "min", "gte":
				errs = append(errs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
			case "max", "lte":
				errs = append(errs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
			case "oneof":
				errs = append(errs, fmt.Sprintf("%s must be one of %s", field, e.Param()))
			default:
				errs = append(errs, fmt.Sprintf("%s is invalid (%s)", field, tag))
			}
		}
	}
	return errs
}

// Message collapses a binding error into the single string used in error bodies.
func Message(err error) string {
	if msgs := FormatValidationError(err); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return "invalid request body"
}
