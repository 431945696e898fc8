package feature

import "fmt"

// Kind tags the variant of an Option.
type Kind int

const (
	// Binary options are either selected (1) or deselected (0).
	Binary Kind = iota + 1
	// Numeric options take values from a range enumerated by a step function.
	Numeric
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Numeric:
		return "numeric"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
