// Package provider adapts remote speech-to-text and task-splitting backends to one
// capability contract.
package provider

import (
	"context"
	"fmt"
)

// Handle is an opaque reference to a recorded audio resource (a path or file:// URI).
type Handle string

// Empty reports whether the handle carries no audio reference.
func (h Handle) Empty() bool {
	return h == ""
}

// Transcriber converts a recorded audio resource into text.
type Transcriber interface {
	TranscribeAudio(context.Context, Handle) (string, error)
}

// Splitter divides transcript text into ordered candidate task strings.
type Splitter interface {
	ParseTasks(context.Context, string) ([]string, error)
}

// Provider is one interchangeable AI backend exposing both capabilities.
type Provider interface {
	Name() string
	Transcriber
	Splitter
}

// TranscriptionError reports a failed remote transcription call.
type TranscriptionError struct {
	Provider string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("%s transcription failed: %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

func transcriptionError(provider string, err error) error {
	return &TranscriptionError{Provider: provider, Err: err}
}

// singleTask is the adapter-local fallback used when a splitter result is unusable.
func singleTask(text string) []string {
	return []string{text}
}
