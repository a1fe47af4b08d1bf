package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the fields required for the selected fulfillment type.
// The address is required only for delivery.
func (d DeliveryInfo) Validate() error {
	if err := validate.Struct(d); err != nil {
		return validationFailure(err)
	}
	if d.Type == FulfillmentEntrega {
		if d.Address == nil {
			return ValidationError("address is required for delivery")
		}
		if err := validate.Struct(d.Address); err != nil {
			return validationFailure(err)
		}
	}
	return nil
}

// Validate checks a provider line item.
func (i LineItem) Validate() error {
	if err := validate.Struct(i); err != nil {
		return validationFailure(err)
	}
	if i.UnitPrice.IsNegative() {
		return ValidationError("item %s: unit price must not be negative", i.ID)
	}
	return nil
}

func validationFailure(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationError("%v", err)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, formatFieldError(fe))
	}
	return ValidationError("%s", strings.Join(details, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
