package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagHHMM      = "hhmm"      // "HH:MM" or "HH:MM:SS"
	TagYearMonth = "yearmonth" // "YYYY-MM"
	TagDate      = "date"      // "YYYY-MM-DD"
)

var (
	hhmmRegex      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	yearMonthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	controlRegex   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

	defaultValidator     *validator.Validate
	defaultValidatorOnce sync.Once
)

// RegisterValidators installs the custom tags and reports fields by their json name
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	rules := map[string]validator.Func{
		TagHHMM: func(fl validator.FieldLevel) bool {
			return hhmmRegex.MatchString(fl.Field().String())
		},
		TagYearMonth: func(fl validator.FieldLevel) bool {
			return yearMonthRegex.MatchString(fl.Field().String())
		},
		TagDate: func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return nil
}

func validate() *validator.Validate {
	defaultValidatorOnce.Do(func() {
		defaultValidator = validator.New()
		if err := RegisterValidators(defaultValidator); err != nil {
			panic(err)
		}
	})
	return defaultValidator
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if err := validate().Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateURL validates an absolute URL
func ValidateURL(raw string) error {
	if err := validate().Var(raw, "required,url"); err != nil {
		return fmt.Errorf("invalid URL: %s", raw)
	}
	return nil
}

// ValidateStruct runs the struct's validate tags
func ValidateStruct(s interface{}) error {
	return validate().Struct(s)
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}

// FormatBindingError turns a bind or validation error into a readable message
func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid JSON at byte offset %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field '%s' should be of type %s", typeErr.Field, typeErr.Type.String())
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, formatFieldError(fe))
		}
		return strings.Join(out, ", ")
	}

	return err.Error()
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email", fe.Field())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", fe.Field(), fe.Param())
	case TagHHMM:
		return fmt.Sprintf("field '%s' must be a time HH:MM", fe.Field())
	case TagYearMonth:
		return fmt.Sprintf("field '%s' must be a month YYYY-MM", fe.Field())
	case TagDate:
		return fmt.Sprintf("field '%s' must be a date YYYY-MM-DD", fe.Field())
	}
	return fmt.Sprintf("field '%s' failed validation for '%s'", fe.Field(), fe.Tag())
}
