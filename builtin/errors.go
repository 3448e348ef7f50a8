package builtin

// DoublePullError is returned by RunMerge when the downstream issues a
// second Pull while an earlier one is still awaiting an upstream answer
// — a protocol violation, since a consumer must not pull again until its
// prior Pull has been answered.
type DoublePullError struct{}

func (e *DoublePullError) Error() string {
	return "builtin: merge: downstream pulled again while still waiting for upstreams"
}
