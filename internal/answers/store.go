// Package answers holds the participant's current selections for one session.
package answers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

var (
	ErrNotAnswerable    = errors.New("question is not answerable")
	ErrUnknownOption    = errors.New("option label does not belong to question")
	ErrTooManySelection = errors.New("single-choice question accepts exactly one label")
)

// Record maps a question id to its ordered selected labels. A missing key
// means the question is unanswered.
type Record map[int][]string

// Wire renders the record in the submission format, keyed by the decimal
// question id.
func (r Record) Wire() map[string][]string {
	out := make(map[string][]string, len(r))
	for id, labels := range r {
		out[strconv.Itoa(id)] = append([]string(nil), labels...)
	}
	return out
}

// Store is not safe for concurrent use; the session controller serializes access.
type Store struct {
	record Record
}

func NewStore() *Store {
	return &Store{record: make(Record)}
}

// Select replaces the selection for q. Labels are de-duplicated keeping their
// first position. An empty selection clears the entry.
func (s *Store) Select(q *models.Question, labels []string) error {
	if q == nil || !q.Answerable() {
		return ErrNotAnswerable
	}

	selected := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if !q.HasOption(l) {
			return fmt.Errorf("%w: %q for question %d", ErrUnknownOption, l, q.ID)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		selected = append(selected, l)
	}

	if !q.MultiSelect() && len(selected) > 1 {
		return ErrTooManySelection
	}

	if len(selected) == 0 {
		delete(s.record, q.ID)
		return nil
	}
	s.record[q.ID] = selected
	return nil
}

// Selected returns a copy of the labels held for questionID.
func (s *Store) Selected(questionID int) []string {
	labels, ok := s.record[questionID]
	if !ok {
		return nil
	}
	return append([]string(nil), labels...)
}

func (s *Store) Answered(questionID int) bool {
	_, ok := s.record[questionID]
	return ok
}

// Count is the number of answered questions.
func (s *Store) Count() int {
	return len(s.record)
}

// Snapshot returns a deep copy that later selections cannot change.
func (s *Store) Snapshot() Record {
	out := make(Record, len(s.record))
	for id, labels := range s.record {
		out[id] = append([]string(nil), labels...)
	}
	return out
}
