package service

import (
	"testing"

	"github.com/campuskit/enrollment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsCompleteIntake(t *testing.T) {
	v := NewIntakeValidator(testLogger())

	intake := validIntake()
	intake.Email = "asel@example.com"
	intake.CourseID = "course-1"

	require.NoError(t, v.Validate(intake))
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	v := NewIntakeValidator(testLogger())

	err := v.Validate(domain.Intake{})

	var fieldErrors domain.ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	assert.True(t, fieldErrors.HasErrors())

	// Все обязательные поля получают свое сообщение за один проход
	for _, field := range []string{"name", "email", "phone", "address", "dateOfBirth", "gender", "qualification", "institution", "courseID"} {
		assert.NotEmpty(t, fieldErrors.GetByField(field), field)
	}
	assert.Equal(t, "name is required", fieldErrors.GetByField("name"))
}

func TestValidateRejectsMalformedEmail(t *testing.T) {
	v := NewIntakeValidator(testLogger())

	intake := validIntake()
	intake.Email = "not-an-email"
	intake.CourseID = "course-1"

	err := v.Validate(intake)

	var fieldErrors domain.ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	assert.Equal(t, "email must be a valid email address", fieldErrors.GetByField("email"))
	// Остальные поля заполнены корректно
	assert.Empty(t, fieldErrors.GetByField("name"))
}

func TestValidateCourseTitleIsOptional(t *testing.T) {
	v := NewIntakeValidator(testLogger())

	intake := validIntake()
	intake.Email = "asel@example.com"
	intake.CourseID = "course-1"
	intake.CourseTitle = ""

	require.NoError(t, v.Validate(intake))
}
