package wrapper

import "github.com/whitaker-io/flowgraph/protocol/command"

// UnexpectedConsumerMessageError is returned by an Outlet wrapper when a
// ConsumerMessage other than Cancel arrives while it is already
// producing items for a prior Pull.
type UnexpectedConsumerMessageError struct{}

func (e *UnexpectedConsumerMessageError) Error() string {
	return "wrapper: unexpected consumer message while producing"
}

// InletFailureError surfaces an upstream Fail observed by an Inlet
// wrapper.
type InletFailureError struct {
	Cause *command.Failure
}

func (e *InletFailureError) Error() string {
	return "wrapper: inlet failure: " + e.Cause.Error()
}

func (e *InletFailureError) Unwrap() error { return e.Cause }

// DeserializeFailureError surfaces a reader-schema decode failure.
type DeserializeFailureError struct {
	Cause error
}

func (e *DeserializeFailureError) Error() string {
	return "wrapper: deserialize failure: " + e.Cause.Error()
}

func (e *DeserializeFailureError) Unwrap() error { return e.Cause }

// SinkFailureError surfaces a sink error observed while delivering a
// decoded item.
type SinkFailureError struct {
	Cause error
}

func (e *SinkFailureError) Error() string {
	return "wrapper: sink failure: " + e.Cause.Error()
}

func (e *SinkFailureError) Unwrap() error { return e.Cause }
