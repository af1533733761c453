package validator

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

// ValidationError maps request fields to a readable message.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s %s", field, e.Errors[field]))
	}
	return strings.Join(msgs, "; ")
}

// Register installs the json tag name function and the domain rules on v.
// It is applied to gin's binding engine at startup.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("application_status", func(fl validator.FieldLevel) bool {
		return model.ApplicationStatus(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return model.NotificationType(fl.Field().String()).Valid()
	})
}

// Translate turns validator errors into a ValidationError. Other errors are
// returned unchanged.
func Translate(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		out.Errors[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "application_status":
		return "must be one of pending, reviewed, shortlisted, rejected, hired"
	case "notification_type":
		return "is not a known notification type"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
