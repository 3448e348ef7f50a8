package vertex

import "fmt"

// EmptyRunSpecError is returned when none of a RunSpec's three variants
// is set.
type EmptyRunSpecError struct{}

func (e *EmptyRunSpecError) Error() string { return "vertex: RunSpec has no variant set" }

// EmptyStdStageSpecError is returned when neither Tee nor Merge is set
// on a StdStageSpec.
type EmptyStdStageSpecError struct{}

func (e *EmptyStdStageSpecError) Error() string { return "vertex: StdStageSpec has no variant set" }

// UnconfiguredGraphRunnerError is returned when a Vertex's RunSpec is a
// nested Graph but no GraphRunner was supplied to run it.
type UnconfiguredGraphRunnerError struct{}

func (e *UnconfiguredGraphRunnerError) Error() string {
	return "vertex: nested graph vertex has no GraphRunner configured"
}

// StdStageArityError is returned when a Tee or Merge vertex was bound to
// a number of inlets/outlets inconsistent with its role (Tee: exactly 1
// inlet; Merge: exactly 1 outlet).
type StdStageArityError struct {
	Stage string
	Want  int
	Got   int
}

func (e *StdStageArityError) Error() string {
	return fmt.Sprintf("vertex: %s: expected %d port(s), got %d", e.Stage, e.Want, e.Got)
}
