// Package validate runs struct-tag validation and turns the result into a
// single apperr.ValidationError listing every violated field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
)

// Enum is implemented by closed string sets (slots, services, statuses...).
type Enum interface {
	Valid() bool
}

// Messages overrides the default text per "field.tag" or per "field".
type Messages map[string]string

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

var (
	once sync.Once
	std  *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			e, ok := fl.Field().Interface().(Enum)
			return ok && e.Valid()
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
		std = v
	})
	return std
}

// IsPhone reports whether s matches the loose international number pattern.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// Struct validates s. Tag failures come back as *apperr.ValidationError;
// programming errors (non-struct input) are returned as-is.
func Struct(s any, msgs Messages) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe, msgs))
	}
	return out
}

func message(fe validator.FieldError, msgs Messages) string {
	field := fe.Field()
	if m, ok := msgs[field+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := msgs[field]; ok {
		return m
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s", field, fe.Param())
	case "email":
		return "Please provide a valid email address"
	case "phone":
		return "Please provide a valid phone number"
	case "mongodb":
		return fmt.Sprintf("Invalid %s format", field)
	case "enum", "oneof":
		return fmt.Sprintf("Invalid %s", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
