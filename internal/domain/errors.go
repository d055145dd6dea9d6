package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWheelNotFound indicates the wheel definition could not be loaded.
	ErrWheelNotFound = errors.New("wheel not found")
	// ErrInvalidWheel is returned by wheel validation.
	ErrInvalidWheel = errors.New("invalid wheel")
	// ErrSessionNotFound is returned when a player has not joined the wheel.
	ErrSessionNotFound = errors.New("wheel session not found")
	// ErrSpinRejected matches every *RejectionError.
	ErrSpinRejected = errors.New("spin rejected")
	// ErrNotQuizWheel is returned when answering on a prize wheel.
	ErrNotQuizWheel = errors.New("wheel has no questions")
	// ErrNoPendingQuestion is returned when answering with nothing open.
	ErrNoPendingQuestion = errors.New("no question pending")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
)

// RejectReason is the code reported when a spin request is not accepted.
type RejectReason string

const (
	RejectNone                RejectReason = ""
	RejectNoSpinsLeft         RejectReason = "NoSpinsLeft"
	RejectInsufficientBalance RejectReason = "InsufficientBalance"
	RejectAlreadySpinning     RejectReason = "AlreadySpinning"
	RejectQuestionPending     RejectReason = "QuestionPending"
)

// RejectionError carries the reason a spin was refused. The player's state is unchanged.
type RejectionError struct {
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("spin rejected: %s", e.Reason)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrSpinRejected
}

// Rejected builds a RejectionError.
func Rejected(reason RejectReason) error {
	return &RejectionError{Reason: reason}
}

// ReasonOf extracts the rejection reason from err, or RejectNone.
func ReasonOf(err error) RejectReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return RejectNone
}
