package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/domain/currency"
)

// RegisterValidators installs the custom binding tags on gin's validator:
//
//	known_currency  the code is present in the currency catalog
//
// Field names in validation errors are reported by their JSON name.
func RegisterValidators(currencies currency.Validator) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return v.RegisterValidation("known_currency", func(fl validator.FieldLevel) bool {
		return currencies.IsValidCurrency(fl.Field().String())
	})
}

// BindError converts a binding failure into a validation AppError naming the
// first offending field.
func BindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.NewValidation(fmt.Sprintf("%s failed '%s' validation", fe.Field(), fe.Tag())).
			WithField(fe.Field()).
			WithDetail("path", fe.Namespace()).
			WithCause(err)
	}
	// Malformed JSON or a value type rejecting its input.
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	return apperror.NewValidation("invalid request body").
		WithDetail("error", err.Error()).
		WithCause(err)
}
