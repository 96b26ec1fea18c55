package models

type QuestionType string

const (
	SingleChoice     QuestionType = "single"
	MultipleChoice   QuestionType = "multiple"
	IndefiniteChoice QuestionType = "indefinite"
	CaseBackground   QuestionType = "case"
)

// Option is one selectable answer. The per-option point value sent by the
// backend is not decoded and never reaches the exam UI.
type Option struct {
	Label string `json:"label" validate:"required"`
	Text  string `json:"text"`
}

type Question struct {
	ID           int          `json:"id" validate:"required,min=1"`
	Content      string       `json:"content"`
	Type         QuestionType `json:"type" validate:"question_type"`
	Options      []Option     `json:"options" validate:"dive"`
	OrderNum     int          `json:"order_num"`
	ParentCaseID *int         `json:"parent_case_id"`
}

func (q Question) IsBackground() bool {
	return q.Type == CaseBackground
}

// Answerable reports whether a participant can select options for the question.
func (q Question) Answerable() bool {
	return !q.IsBackground()
}

// MultiSelect reports whether more than one label may be held at once.
func (q Question) MultiSelect() bool {
	return q.Type == MultipleChoice || q.Type == IndefiniteChoice
}

// HasOption reports whether label is one of the question's option labels.
func (q Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}
