// Package session drives one participant through an assignment: selection,
// rules, the timed in-progress phase with integrity monitoring, and
// submission or forced termination.
package session

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/proctor-agent/internal/answers"
	"github.com/SAP-F-2025/proctor-agent/internal/grouping"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/timer"
)

type Phase string

const (
	PhaseListing      Phase = "listing"
	PhaseRulesReview  Phase = "rules_review"
	PhaseReadyToStart Phase = "ready_to_start"
	PhaseInProgress   Phase = "in_progress"
	PhaseSubmitting   Phase = "submitting"
	PhaseCompleted    Phase = "completed"
	PhaseTerminated   Phase = "terminated"
)

// Trigger says what started a submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

var (
	ErrInvalidPhase          = errors.New("operation not allowed in current phase")
	ErrAssignmentNotFound    = errors.New("assignment not found")
	ErrAssignmentNotEligible = errors.New("assignment is not eligible for a new session")
	ErrQuestionsNotLoaded    = errors.New("questions are still loading")
	ErrStartInFlight         = errors.New("session start already in progress")
	ErrIndexOutOfRange       = errors.New("question index out of range")
	ErrSessionTerminated     = errors.New("session was terminated")
	ErrSessionClosed         = errors.New("session was closed while the request was in flight")
	ErrTimeExpired           = errors.New("time is up, answers can no longer be changed")

	ErrQuestionNotAnswerable = answers.ErrNotAnswerable
	ErrUnknownOption         = answers.ErrUnknownOption
	ErrTooManySelection      = answers.ErrTooManySelection
)

// IsValidationError reports whether err was caused by the caller's input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrQuestionNotAnswerable) ||
		errors.Is(err, ErrUnknownOption) ||
		errors.Is(err, ErrTooManySelection) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrAssignmentNotEligible)
}

// IsPhaseError reports whether err was caused by calling an operation out of order.
func IsPhaseError(err error) bool {
	return errors.Is(err, ErrInvalidPhase) ||
		errors.Is(err, ErrStartInFlight) ||
		errors.Is(err, ErrQuestionsNotLoaded) ||
		errors.Is(err, ErrSessionTerminated) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrTimeExpired)
}

// state is one phase of the session. Each phase carries only the data that
// is meaningful in it.
type state interface {
	phase() Phase
}

type listingState struct{}

type rulesReviewState struct {
	assignment models.Assignment
	layout     *grouping.Layout // nil while questions load
}

type readyState struct {
	assignment models.Assignment
	layout     *grouping.Layout
	starting   bool
}

// activeSession is shared by the in-progress and submitting phases.
type activeSession struct {
	assignment models.Assignment
	layout     *grouping.Layout
	answers    *answers.Store
	countdown  *timer.Countdown
	index      int
	warned     bool
	stopTicks  context.CancelFunc
}

type inProgressState struct {
	*activeSession
}

type submittingState struct {
	*activeSession
	trigger Trigger
}

type completedState struct {
	assignment models.Assignment
	answered   int
	total      int
	trigger    Trigger
}

type terminatedState struct {
	assignment models.Assignment
	reason     string
	exits      int
}

func (*listingState) phase() Phase     { return PhaseListing }
func (*rulesReviewState) phase() Phase { return PhaseRulesReview }
func (*readyState) phase() Phase       { return PhaseReadyToStart }
func (*inProgressState) phase() Phase  { return PhaseInProgress }
func (*submittingState) phase() Phase  { return PhaseSubmitting }
func (*completedState) phase() Phase   { return PhaseCompleted }
func (*terminatedState) phase() Phase  { return PhaseTerminated }
