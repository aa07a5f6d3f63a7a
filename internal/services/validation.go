package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxTagName      = 100
	maxCategoryName = 200
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names so errors line up with the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and collects failures into verr.
func validateStruct(s interface{}, verr *ValidationError) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		verr.add("non_field_errors", err.Error())
		return
	}
	for _, e := range vErrs {
		verr.add(fieldPath(e.Namespace()), describe(e))
	}
}

// fieldPath drops the struct name prefix from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", e.Tag())
	}
}

// cleanNames trims each name and checks it is non-empty and within max
// characters. Failures are reported under field[i].name.
func cleanNames(field string, names []string, max int, verr *ValidationError) []string {
	out := make([]string, len(names))
	rule := fmt.Sprintf("required,max=%d", max)
	for i, name := range names {
		out[i] = strings.TrimSpace(name)
		if err := validate.Var(out[i], rule); err != nil {
			var vErrs validator.ValidationErrors
			if errors.As(err, &vErrs) && len(vErrs) > 0 {
				verr.add(fmt.Sprintf("%s[%d].name", field, i), describe(vErrs[0]))
			} else {
				verr.add(fmt.Sprintf("%s[%d].name", field, i), err.Error())
			}
		}
	}
	return out
}
