// Package validation holds the declarative request rule sets. Inputs are
// trimmed before rules run; text that is stored and rendered later is
// HTML-escaped only after it passes.
package validation

import (
	"errors"
	"html"
	"reflect"
	"regexp"
	"strings"

	"feedhub/internal/models"

	"github.com/go-playground/validator/v10"
)

// FailedMessage is the summary message of every validation failure.
const FailedMessage = "Validation failed, entered data is incorrect!"

var (
	lowerRe     = regexp.MustCompile(`[a-z]`)
	upperRe     = regexp.MustCompile(`[A-Z]`)
	digitRe     = regexp.MustCompile(`\d`)
	personName  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	postTitleRe = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "password_strength", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return lowerRe.MatchString(s) && upperRe.MatchString(s) && digitRe.MatchString(s)
	})
	mustRegister(v, "person_name", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	mustRegister(v, "post_title", func(fl validator.FieldLevel) bool {
		return postTitleRe.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// messages maps "field.tag" to the client-facing message. Unlisted pairs fall
// back to "<field> is invalid".
var messages = map[string]string{
	"email.required":             "Please enter a valid email address",
	"email.email":                "Please enter a valid email address",
	"password.required":          "Password must be at least 6 characters long",
	"password.min":               "Password must be at least 6 characters long",
	"password.password_strength": "Password must contain at least one lowercase letter, one uppercase letter, and one number",
	"name.required":              "Name must be at least 3 characters long",
	"name.min":                   "Name must be at least 3 characters long",
	"name.person_name":           "Name must contain only letters and spaces",
	"status.required":            "Status must be between 1 and 200 characters",
	"status.max":                 "Status must be between 1 and 200 characters",
	"title.required":             "Title must be between 5 and 100 characters",
	"title.min":                  "Title must be between 5 and 100 characters",
	"title.max":                  "Title must be between 5 and 100 characters",
	"title.post_title":           "Title contains invalid characters",
	"content.required":           "Content must be between 5 and 2000 characters",
	"content.min":                "Content must be between 5 and 2000 characters",
	"content.max":                "Content must be between 5 and 2000 characters",
}

// Struct runs the rules on s and returns every violation, never just the first.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewInternalError(err)
	}
	return models.NewValidationError(FailedMessage, fieldErrors(verrs)...)
}

func fieldErrors(verrs validator.ValidationErrors) []models.FieldError {
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		fieldErr := models.FieldError{Field: field, Message: msg}
		if field != "password" {
			if v, ok := fe.Value().(string); ok {
				fieldErr.Value = v
			}
		}
		out = append(out, fieldErr)
	}
	return out
}

// Merge appends extra field errors to err, turning a nil err into a
// validation failure when extra is non-empty.
func Merge(err error, extra ...models.FieldError) error {
	if len(extra) == 0 {
		return err
	}
	if err == nil {
		return models.NewValidationError(FailedMessage, extra...)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Kind == models.KindValidation {
		appErr.ValidationErrors = append(appErr.ValidationErrors, extra...)
		return appErr
	}
	return err
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmail reports whether s passes the same email rule the rule sets use.
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// Escape HTML-escapes s for storage.
func Escape(s string) string {
	return html.EscapeString(s)
}
