package command

import "strings"

// FailureReason is one link in a Failure's causal chain.
type FailureReason struct {
	Message string `avro:"message" json:"message"`
}

// Failure is the terminal error value carried by OutletFailed, by a
// ProducerMessage's Fail, and by the Inlet wrapper's InletFailureError. ReasonChain preserves causal context across
// layers without depending on a particular Go error type on the wire.
type Failure struct {
	Message     string          `avro:"message" json:"message"`
	ReasonChain []FailureReason `avro:"reason_chain" json:"reason_chain"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if len(f.ReasonChain) == 0 {
		return f.Message
	}

	reasons := make([]string, len(f.ReasonChain))
	for i, r := range f.ReasonChain {
		reasons[i] = r.Message
	}
	return f.Message + ": " + strings.Join(reasons, ": ")
}

// NewFailure builds a Failure from a Go error, chaining through err's
// Unwrap() chain so nested causes survive the wire round-trip.
func NewFailure(err error) *Failure {
	f := &Failure{Message: err.Error()}

	type unwrapper interface{ Unwrap() error }
	cause := err
	for {
		u, ok := cause.(unwrapper)
		if !ok {
			break
		}
		next := u.Unwrap()
		if next == nil {
			break
		}
		f.ReasonChain = append(f.ReasonChain, FailureReason{Message: next.Error()})
		cause = next
	}

	return f
}
