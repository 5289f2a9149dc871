package ferrors

import "fmt"

// ClassifiedError is a structured error tagged with a taxonomy category so
// the Runway can decide whether to abort, skip, or continue.
type ClassifiedError struct {
	category Category
	message  string
	cause    error
	context  Context
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.category, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.category, e.message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() Category { return e.category }

func (e *ClassifiedError) Policy() Policy { return PolicyFor(e.category) }

func (e *ClassifiedError) Context() Context { return e.context }

func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	if !ok {
		return false
	}
	return e.category == other.category && e.message == other.message
}

// AsClassified extracts a *ClassifiedError from err, if it is one.
func AsClassified(err error) (*ClassifiedError, bool) {
	ce, ok := err.(*ClassifiedError)
	return ce, ok
}

// CategoryOf returns the category of err, or "" if it isn't classified.
func CategoryOf(err error) Category {
	if ce, ok := AsClassified(err); ok {
		return ce.category
	}
	return ""
}
