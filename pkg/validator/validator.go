package validator

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldBlank         = "Field must not be blank"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrInvalidTimestamp   = "Field is not a valid date"
	ErrNotPositive        = "Value must be positive"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("timestamp", validateTimestamp)
	_ = v.RegisterValidation("positive", validatePositiveInt)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// jsonFieldName reports fields by their json name so messages match the
// request body the client sent.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateTimestamp(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ParseTimestamp(s)
	return err == nil
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int() > 0
	default:
		return false
	}
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

// tagMessages translates a failed tag into the message shown to clients.
var tagMessages = map[string]string{
	"required":  ErrFieldRequired,
	"notblank":  ErrFieldBlank,
	"email":     ErrInvalidFormat,
	"max":       ErrFieldExceedsMaxLen,
	"min":       ErrFieldBelowMinLen,
	"lt":        ErrFieldExceedsMaxVal,
	"lte":       ErrFieldExceedsMaxVal,
	"gt":        ErrFieldBelowMinVal,
	"gte":       ErrFieldBelowMinVal,
	"timestamp": ErrInvalidTimestamp,
	"positive":  ErrNotPositive,
}

// parseValidationErrors reports only the first failed field, as
// "<message>: <json field>".
func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return nil
	}
	first := vErrors[0]
	msg, ok := tagMessages[first.Tag()]
	if !ok {
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + first.Field())
}
