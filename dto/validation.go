package dto

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/healthfin/healthcare-api/models"
)

var validate = NewValidator("json")

// NewValidator reports fields under the name found in the given struct tag
// (json, form...) so that messages match what the client sent.
func NewValidator(tagName string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterFieldNames(v, tagName)
	return v
}

func RegisterFieldNames(v *validator.Validate, tagName string) {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(tagName), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}

// AdaptFieldValidationError turns a field error into a message for the client.
func AdaptFieldValidationError(fe validator.FieldError) string {
	inner := func(fe validator.FieldError) string {
		switch fe.ActualTag() {
		case "required":
			return "is required"
		case "oneof":
			return fmt.Sprintf("must be one of %s", strings.Join(strings.Split(fe.Param(), " "), ", "))
		case "min":
			if fe.Kind() == reflect.String {
				return fmt.Sprintf("must have at least %s characters", fe.Param())
			}
			return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
		case "max":
			if fe.Kind() == reflect.String {
				return fmt.Sprintf("must have at most %s characters", fe.Param())
			}
			return fmt.Sprintf("must be less than or equal to %s", fe.Param())
		}
		return "is invalid"
	}

	return fmt.Sprintf("field `%s` %s", fe.Field(), inner(fe))
}

// AdaptValidationErrors wraps validation failures into a models.BadParameterError.
// Other errors are returned unchanged.
func AdaptValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, AdaptFieldValidationError(fe))
	}
	return errors.Wrap(models.BadParameterError, strings.Join(messages, "; "))
}

func ValidateChatMessage(msg ChatIncomingMessageDto) error {
	return AdaptValidationErrors(validate.Struct(msg))
}
