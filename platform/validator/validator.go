// Package validator checks request structs and reports failures as
// apperr validation errors keyed by JSON field name.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"revive_backend/platform/apperr"
	"revive_backend/platform/phone"

	"github.com/go-playground/validator/v10"
)

const msgValidationFailed = "validation failed"

type Validator struct {
	v *validator.Validate
}

// New registers the project tags on top of the go-playground defaults.
//
//	dialable: the value sanitizes to a "+<digits>" number the dialer accepts.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("dialable", func(fl validator.FieldLevel) bool {
		return phone.IsValidDialable(phone.SanitizeToDialable(fl.Field().String()))
	})
	return &Validator{v: v}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Struct returns nil or a KindValidation *apperr.Error whose details map each
// failing field path to the rule it broke, e.g. {"leads[0].phone": "required"}.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation(msgValidationFailed).WithDetails(err.Error())
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return apperr.Validation(msgValidationFailed).WithDetails(details)
}

// fieldPath drops the root struct name from a namespace like "UploadRequest.leads[0].phone".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
