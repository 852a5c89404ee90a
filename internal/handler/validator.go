package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/moodmap/internal/apperror"
)

// requestValidator wraps go-playground/validator and turns the first failed
// rule into an apperror validation error.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate checks req's `validate` tags. A failed "required" rule is reported
// with missingMsg, which is what the user sees for an incomplete form.
func (rv *requestValidator) Validate(req any, missingMsg string) error {
	err := rv.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("handler: validating request: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(fe.Field(), missingMsg)
	case "email":
		return apperror.ValidationFailed(fe.Field(), "Please enter a valid email address")
	case "max":
		return apperror.ValidationFailed(fe.Field(),
			fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	}
	return apperror.ValidationFailed(fe.Field(), fmt.Sprintf("%s failed on '%s' validation", fe.Field(), fe.Tag()))
}
