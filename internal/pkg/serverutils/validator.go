package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation; the returned error is validator.ValidationErrors.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

func describeValidationErrors(errs validator.ValidationErrors) (string, map[string]string) {
	fields := make(map[string]string, len(errs))
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "max":
			msg = fmt.Sprintf("must be at most %s", fe.Param())
		case "min":
			msg = fmt.Sprintf("must be at least %s", fe.Param())
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s]", fe.Param())
		case "unique":
			msg = "must not contain duplicates"
		default:
			msg = fmt.Sprintf("failed on %s", fe.Tag())
		}
		fields[field] = msg
		parts = append(parts, field+" "+msg)
	}
	return strings.Join(parts, "; "), fields
}
