// README: Shared struct validator with the domain's custom tags registered.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"busticket/internal/types"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator. It is safe for concurrent use.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return types.Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("direction", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "forward" || s == "return"
		})
		instance = v
	})
	return instance
}

// Struct validates v and flattens field errors into one readable message.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
