package feature

import "errors"

var (
	// ErrDuplicateOption is returned when an option name is already taken.
	ErrDuplicateOption = errors.New("feature: duplicate option name")
	// ErrInvalidName is returned for names that are empty after normalization.
	ErrInvalidName = errors.New("feature: invalid option name")
	// ErrUnknownParent is returned when a parent name does not resolve to a binary option.
	ErrUnknownParent = errors.New("feature: parent is not a known binary option")
	// ErrHierarchyCycle is returned when the parent relation contains a cycle.
	ErrHierarchyCycle = errors.New("feature: cycle in option hierarchy")
	// ErrUnknownFeature is returned when the features order names an unknown option.
	ErrUnknownFeature = errors.New("feature: features order references unknown option")
	// ErrAttached is returned when an option is added to a second model.
	ErrAttached = errors.New("feature: option already belongs to a model")
)
