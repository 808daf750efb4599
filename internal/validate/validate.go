// Package validate checks form input before any remote call is made. Each
// form is a struct whose validate tags are its schema; failures come back as
// field-scoped messages.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinLocationLen = 10
	MinNameLen     = 2
	MinPasswordLen = 6
)

var plateRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{2}[0-9]{4}$`)

// messages is keyed by "field.tag", with "field" as the fallback.
var messages = map[string]string{
	"vehicle_number":    "Invalid vehicle number format (e.g. KA01AB1234)",
	"location":          "Location must be at least 10 characters",
	"name":              "Name must be at least 2 characters",
	"email":             "Invalid email address",
	"password.required": "Password is required",
	"password":          "Password must be at least 6 characters",
	"confirm_password":  "Passwords don't match",
}

var schema = newSchema()

func newSchema() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return Plate(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Errors maps a form field to its message. An empty Errors means valid.
type Errors map[string]string

// OK reports whether there are no errors.
func (e Errors) OK() bool { return len(e) == 0 }

// Error joins the messages in field order, so Errors can be returned as an
// error.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when there is nothing to report.
func (e Errors) Err() error {
	if e.OK() {
		return nil
	}
	return e
}

// Plate reports whether s is a registration number such as KA01AB1234.
func Plate(s string) bool {
	return plateRe.MatchString(s)
}

// Email reports whether s is a single bare address.
func Email(s string) bool {
	return schema.Var(s, "required,email") == nil
}

// ReportInput is the incident form. Location length counts characters as
// typed.
type ReportInput struct {
	VehicleNumber string `form:"vehicle_number" validate:"plate"`
	Location      string `form:"location" validate:"min=10"`
}

// Report validates the incident form.
func Report(in ReportInput) Errors {
	return check(in)
}

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	Name            string `form:"name" validate:"min=2"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
}

// Registration validates the sign-up form.
func Registration(in RegistrationInput) Errors {
	return check(in)
}

// LoginInput is the password sign-in form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// Login validates the sign-in form.
func Login(in LoginInput) Errors {
	return check(in)
}

func check(form any) Errors {
	errs := Errors{}

	err := schema.Struct(form)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range fieldErrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = messageFor(fe)
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	if m, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := messages[fe.Field()]; ok {
		return m
	}
	return fe.Error()
}
