package thing

import "errors"

// Domain errors for the thing package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, thing.ErrPropertyNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPropertyNotFound is returned when a property name does not exist on a thing.
	ErrPropertyNotFound = errors.New("thing: property not found")

	// ErrPropertyExists is returned when adding a property whose name is already taken.
	ErrPropertyExists = errors.New("thing: property already exists")

	// ErrActionNotFound is returned when an action id does not exist, or when the
	// record exists but has already reached a terminal status and can no longer
	// be cancelled.
	ErrActionNotFound = errors.New("thing: action not found")

	// ErrUnknownAction is returned when requesting an action whose schema was
	// never registered on the thing.
	ErrUnknownAction = errors.New("thing: unknown action")

	// ErrUnknownEvent is returned when emitting an event whose schema was never
	// registered on the thing.
	ErrUnknownEvent = errors.New("thing: unknown event")

	// ErrReadOnlyProperty is returned when writing a property declared readOnly.
	ErrReadOnlyProperty = errors.New("thing: property is read-only")

	// ErrInvalidValue is returned when a property write fails schema validation.
	ErrInvalidValue = errors.New("thing: value does not match schema")

	// ErrInvalidActionInput is returned when an action request's input fails
	// validation against the registered input schema.
	ErrInvalidActionInput = errors.New("thing: action input does not match schema")

	// ErrInvalidEventData is returned when an event payload fails validation
	// against the registered event schema.
	ErrInvalidEventData = errors.New("thing: event data does not match schema")
)

// IsValidation reports whether err is a schema or read-only violation.
// The API layer maps these to a 400 response.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidActionInput) ||
		errors.Is(err, ErrInvalidEventData) ||
		errors.Is(err, ErrReadOnlyProperty)
}

// IsNotFound reports whether err refers to a missing resource.
// The API layer maps these to a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrActionNotFound) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrUnknownEvent)
}
