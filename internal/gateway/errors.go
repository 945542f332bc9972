package gateway

import "errors"

// ErrRPCUnavailable reports that the node under test could not be reached
// during pre-flight. It is fatal to the run; no step executes after it.
var ErrRPCUnavailable = errors.New("rpc endpoint unavailable")

// crashEvidence marks errors whose shape indicates the remote process faulted
// (dropped connection, truncated or schema-violating response) rather than
// answered with a well-formed error envelope.
type crashEvidence struct {
	err error
}

func (e *crashEvidence) Error() string { return e.err.Error() }
func (e *crashEvidence) Unwrap() error { return e.err }

// MarkCrashEvidence wraps err so that IsCrashEvidence reports true for it and
// everything that later wraps it.
func MarkCrashEvidence(err error) error {
	if err == nil {
		return nil
	}
	return &crashEvidence{err: err}
}

// IsCrashEvidence reports whether err carries a crash-evidence mark.
func IsCrashEvidence(err error) bool {
	var ce *crashEvidence
	return errors.As(err, &ce)
}
