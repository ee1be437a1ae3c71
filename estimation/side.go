package estimation

import "fmt"

// Side tags which boundary of a gap an edge model tracks.
type Side uint8

const (
	// SideLeft is the left boundary of a gap.
	SideLeft Side = iota
	// SideRight is the right boundary of a gap.
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		panic(fmt.Sprintf("unknown side %d", uint8(s)))
	}
}
