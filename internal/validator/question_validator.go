package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

// QuestionValidator screens question sets received from the backend. Bad
// items are dropped and reported instead of failing the whole set.
type QuestionValidator struct {
	validate *validator.Validate
}

func NewQuestionValidator(validate *validator.Validate) *QuestionValidator {
	return &QuestionValidator{validate: validate}
}

// FilterQuestions returns the usable questions and the problems found.
// A question is dropped when its fields fail validation, when an answerable
// question has no options or repeats a label, or when its id was already
// seen. Orphaned sub-questions are reported but kept; grouping drops them.
func (qv *QuestionValidator) FilterQuestions(questions []models.Question) ([]models.Question, ValidationErrors) {
	var issues ValidationErrors
	valid := make([]models.Question, 0, len(questions))
	seen := make(map[int]struct{}, len(questions))
	backgrounds := make(map[int]struct{})

	for _, q := range questions {
		if q.IsBackground() {
			backgrounds[q.ID] = struct{}{}
		}
	}

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		if err := qv.validate.Struct(q); err != nil {
			for _, e := range ToValidationErrors(err) {
				e.Field = field + "." + e.Field
				issues = append(issues, e)
			}
			continue
		}
		if _, dup := seen[q.ID]; dup {
			issues = append(issues, *NewValidationErrorWithRule(field, "repeats an earlier question id", "unique_id", q.ID))
			continue
		}
		if msg, ok := checkOptions(q); !ok {
			issues = append(issues, *NewValidationErrorWithRule(field+".options", msg, "options", q.ID))
			continue
		}
		if q.ParentCaseID != nil {
			if _, ok := backgrounds[*q.ParentCaseID]; !ok {
				issues = append(issues, *NewValidationErrorWithRule(field+".parent_case_id",
					"does not reference a case background in this paper", "parent_case", *q.ParentCaseID))
			}
		}

		seen[q.ID] = struct{}{}
		valid = append(valid, q)
	}
	return valid, issues
}

func checkOptions(q models.Question) (string, bool) {
	if q.IsBackground() {
		return "", true
	}
	if len(q.Options) == 0 {
		return "answerable question has no options", false
	}
	labels := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := labels[o.Label]; dup {
			return fmt.Sprintf("option label %q is repeated", o.Label), false
		}
		labels[o.Label] = struct{}{}
	}
	return "", true
}

// FilterAssignments drops assignments that fail validation.
func (v *Validator) FilterAssignments(assignments []models.Assignment) ([]models.Assignment, ValidationErrors) {
	var issues ValidationErrors
	valid := make([]models.Assignment, 0, len(assignments))
	for i, a := range assignments {
		if err := v.structValidator.Struct(a); err != nil {
			for _, e := range ToValidationErrors(err) {
				e.Field = fmt.Sprintf("assignments[%d].%s", i, e.Field)
				issues = append(issues, e)
			}
			continue
		}
		valid = append(valid, a)
	}
	return valid, issues
}
