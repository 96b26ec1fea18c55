package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

// Validator combines struct tag validation with the question-set checks
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(structValidator),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Engine exposes the underlying validator, e.g. for gin's binding.
func (v *Validator) Engine() *validator.Validate {
	return v.structValidator
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// RegisterCustomValidators installs the agent's custom tags on validate.
func RegisterCustomValidators(validate *validator.Validate) {
	registerCustomValidators(validate)
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("assignment_status", validateAssignmentStatus)
	validate.RegisterValidation("nav_direction", validateNavDirection)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.SingleChoice, models.MultipleChoice, models.IndefiniteChoice, models.CaseBackground:
		return true
	}
	return false
}

func validateAssignmentStatus(fl validator.FieldLevel) bool {
	switch models.AssignmentStatus(fl.Field().String()) {
	case models.AssignmentAssigned, models.AssignmentStarted, models.AssignmentCompleted:
		return true
	}
	return false
}

func validateNavDirection(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "next", "prev":
		return true
	}
	return false
}
