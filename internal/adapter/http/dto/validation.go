package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		// decimal.Decimal is a struct, so the builtin numeric tags do not apply.
		_ = v.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
			switch d := fl.Field().Interface().(type) {
			case decimal.Decimal:
				return !d.IsNegative()
			case *decimal.Decimal:
				return d == nil || !d.IsNegative()
			}
			return false
		})

		validate = v
	})
	return validate
}

// Validate checks the struct tags of a request. Failures wrap
// domain.ErrInvalidValue and name the first offending field.
func Validate(req any) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
	}

	fe := fieldErrors[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: '%s' is required", domain.ErrInvalidValue, field)
	case "email":
		return fmt.Errorf("%w: '%s' must be a valid email", domain.ErrInvalidValue, field)
	case "min":
		return fmt.Errorf("%w: '%s' must be at least %s", domain.ErrInvalidValue, field, fe.Param())
	case "max":
		return fmt.Errorf("%w: '%s' must be at most %s", domain.ErrInvalidValue, field, fe.Param())
	case "nonnegative_decimal":
		return fmt.Errorf("%w: '%s' must not be negative", domain.ErrInvalidValue, field)
	case "oneof":
		return fmt.Errorf("%w: '%s' must be one of [%s]", domain.ErrInvalidValue, field, fe.Param())
	default:
		return fmt.Errorf("%w: '%s' failed on '%s'", domain.ErrInvalidValue, field, fe.Tag())
	}
}
