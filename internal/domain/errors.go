package domain

import "fmt"

// Error is a typed negotiation error. Values are constructed fresh per
// failure and never mutated afterwards; the wire format for rejections is
// "Name: Message".
type Error struct {
	Name    string
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Name + ": " + e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Is matches two Errors by Name so sentinel-style comparisons work
// regardless of the per-failure message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}

func EngineUnavailable(uri string, cause error) *Error {
	return &Error{
		Name:    "EngineUnavailable",
		Message: fmt.Sprintf("Could not find media server at address %s. Exiting with error %v", uri, cause),
		cause:   cause,
	}
}

func PresenterExists() *Error {
	return &Error{
		Name:    "PresenterExists",
		Message: "Another user is currently acting as presenter. Try again later...",
	}
}

func PresenterNotFound() *Error {
	return &Error{
		Name:    "PresenterNotFound",
		Message: "No active presenter. Try again later...",
	}
}

func ElementCreationFailed(cause error) *Error {
	return &Error{
		Name:    "ElementCreationFailed",
		Message: fmt.Sprintf("Error creating media element: %v", cause),
		cause:   cause,
	}
}

func ConnectionFailed(cause error) *Error {
	return &Error{
		Name:    "ConnectionFailed",
		Message: fmt.Sprintf("Error connecting media elements: %v", cause),
		cause:   cause,
	}
}

func OfferProcessingFailed(cause error) *Error {
	return &Error{
		Name:    "OfferProcessingFailed",
		Message: fmt.Sprintf("Error processing offer: %v", cause),
		cause:   cause,
	}
}

func CandidateGatheringFailed(cause error) *Error {
	return &Error{
		Name:    "CandidateGatheringFailed",
		Message: fmt.Sprintf("Error gathering candidates: %v", cause),
		cause:   cause,
	}
}

func RecordingFailed(reason string, cause error) *Error {
	return &Error{
		Name:    "RecordingFailed",
		Message: reason,
		cause:   cause,
	}
}

func AlreadyRecording() *Error {
	return &Error{
		Name:    "AlreadyRecording",
		Message: "A recording is already in progress",
	}
}

func NotRecording() *Error {
	return &Error{
		Name:    "NotRecording",
		Message: "No recording in progress",
	}
}

func RoomRequired() *Error {
	return &Error{
		Name:    "RoomRequired",
		Message: "Room not provided",
	}
}

func SessionRequired(sid SessionID) *Error {
	return &Error{
		Name:    "SessionRequired",
		Message: fmt.Sprintf("No session %q. The connection may have been closed", sid),
	}
}

func InvalidMessage(raw string) *Error {
	return &Error{
		Name:    "InvalidMessage",
		Message: "Invalid message " + raw,
	}
}
