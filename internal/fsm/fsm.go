// Package fsm defines capture and reconciliation lifecycle transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateSplitting    State = "splitting"
	StateError        State = "error"
)

const (
	// EventStart begins microphone capture.
	EventStart Event = "start"
	// EventStop ends capture and hands the recording to transcription.
	EventStop Event = "stop"
	// EventSubmit starts transcription of an existing recording without capture.
	EventSubmit      Event = "submit"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	// EventDone completes processing from either transcription (text mode) or splitting.
	EventDone  Event = "done"
	EventFail  Event = "fail"
	EventReset Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventSubmit:
			return StateTranscribing, nil
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventCancel:
			return StateIdle, nil
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateSplitting, nil
		case EventDone:
			return StateIdle, nil
		}
	case StateSplitting:
		if event == EventDone {
			return StateIdle, nil
		}
	case StateError:
		if event == EventReset {
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Busy reports whether state belongs to an in-flight capture or processing run.
func Busy(state State) bool {
	switch state {
	case StateRecording, StateTranscribing, StateSplitting:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
