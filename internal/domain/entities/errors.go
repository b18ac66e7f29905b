package entities

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Recording errors
	ErrRecordingNotFound = errors.New("recording not found")
	ErrInvalidTransition = errors.New("invalid analysis status transition")
	ErrRecordingLocked   = errors.New("recording is being processed by another worker")

	// Pipeline structural errors
	ErrNoUtterances   = errors.New("transcription returned zero utterances")
	ErrNoAdultSpeaker = errors.New("no adult speaker identified")
)

// TranscriptionError wraps a failure of one speech-to-text provider
type TranscriptionError struct {
	Provider string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (%s): %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
