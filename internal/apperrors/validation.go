package apperrors

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator переводит ошибки validator/v10 в ValidationError с картой поле -> правило
func FromValidator(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, ve := range validationErrors {
		fields[fieldPath(ve.Namespace())] = ve.Tag()
	}

	return Validation("некорректные данные", fields)
}

// CreateInput.Items[0].IndicatorID -> Items[0].IndicatorID
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
