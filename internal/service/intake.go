package service

import (
	"errors"
	"strings"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// IntakeValidator проверяет анкету слушателя перед оформлением.
// Валидация выполняется локально и никогда не обращается к сети.
type IntakeValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

// NewIntakeValidator создает новый валидатор анкеты
func NewIntakeValidator(log *logger.Logger) *IntakeValidator {
	return &IntakeValidator{
		validate: validator.New(),
		log:      log,
	}
}

// Validate проверяет обязательные поля анкеты.
// Возвращает domain.ValidationErrors с сообщением на каждое поле.
func (v *IntakeValidator) Validate(intake domain.Intake) error {
	err := v.validate.Struct(intake)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	var result domain.ValidationErrors
	for _, fieldErr := range fieldErrors {
		field := fieldName(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			result.Add(field, field+" is required")
		case "email":
			result.Add(field, field+" must be a valid email address")
		default:
			result.Add(field, field+" is invalid")
		}
	}

	v.log.Debug("Intake validation failed: %d errors", len(result))
	return result
}

// fieldName приводит имя поля структуры к виду поля формы
func fieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}
