package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Error is a validation failure whose text is safe to show the user.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// Verbatim marks the message for display as is.
func (e *Error) Verbatim() bool {
	return true
}

func errorf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("media_url", validateMediaURL)
}

// Struct validates a request struct using its `validate` tags.
// The returned error names the first failing field in plain words.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return describe(verrs[0])
	}
	return err
}

// MediaURL checks a single URL the way request structs are checked.
func MediaURL(u string) error {
	if err := validate.Var(u, "required,media_url"); err != nil {
		return errorf("invalid URL %q", u)
	}
	return nil
}

func describe(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return errorf("%s is required", field)
	case "media_url":
		return errorf("invalid URL %q", fe.Value())
	case "min":
		return errorf("%s must be at least %s", field, fe.Param())
	case "max":
		return errorf("%s must be at most %s", field, fe.Param())
	}
	return errorf("%s is invalid", field)
}

func validateMediaURL(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
