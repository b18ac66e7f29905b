package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance with the session_mode rule registered
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("session_mode", validateSessionMode)
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

func validateSessionMode(fl validator.FieldLevel) bool {
	return entities.SessionMode(fl.Field().String()).IsValid()
}
