package listings

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"wanderlust/internal/domain/shared/failure"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, ok := ParseCategory(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Validate checks every field declaration and reports all violations at once.
func (f Fields) Validate() error {
	err := fieldValidator().Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &failure.ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe.Namespace()), reason(fe))
	}
	return out
}

func fieldPath(namespace string) string {
	if idx := strings.IndexByte(namespace, '.'); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "http_url":
		return "must be an http(s) URL"
	case "category":
		names := make([]string, 0, len(Categories))
		for _, c := range Categories {
			names = append(names, string(c))
		}
		return "must be one of " + strings.Join(names, ", ")
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
