// Package validation checks request payloads with go-playground/validator
// and reports the first failing field as an apperr InvalidInput error whose
// message is safe to return to clients.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/storefront-auth/internal/apperr"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// maxbytes bounds a string by its byte length; bcrypt rejects passwords
	// longer than 72 bytes whatever their rune count.
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	return err == nil && len(fl.Field().String()) <= n
}

var messages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"min":      "%s must be at least %s characters",
	"max":      "%s must be at most %s characters",
	"maxbytes": "%s must be at most %s bytes",
	"oneof":    "%s must be one of %s",
}

func message(fe validator.FieldError) string {
	format, ok := messages[fe.Tag()]
	if !ok {
		return fe.Field() + " is invalid"
	}
	if strings.Count(format, "%s") == 2 {
		return fmt.Sprintf(format, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(format, fe.Field())
}

// Struct validates s against its `validate` tags. Field failures become
// InvalidInput naming the first offending field by its JSON name; misuse
// such as passing a non-struct is Internal.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return apperr.Invalid(message(fields[0]))
	}
	return apperr.Wrap(apperr.Internal, err)
}

// EchoValidator plugs Struct into echo so handlers can call c.Validate.
type EchoValidator struct{}

func (EchoValidator) Validate(i any) error { return Struct(i) }
