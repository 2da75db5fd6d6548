package shared

import "errors"

// Kind classifies ledger faults. Validation faults reject bad input before
// any state mutation, structural faults block a configuration action until a
// precondition is resolved, and integrity faults mean a posting invariant was
// broken by a defect rather than by input. Integrity faults are never
// auto-corrected.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindStructural
	KindIntegrity
)

// Fault is the error type carried by every sentinel in the ledger core.
type Fault struct {
	Kind Kind
	Msg  string
}

func (f *Fault) Error() string { return f.Msg }

// Validation constructs a validation fault sentinel.
func Validation(msg string) error { return &Fault{Kind: KindValidation, Msg: msg} }

// Structural constructs a structural fault sentinel.
func Structural(msg string) error { return &Fault{Kind: KindStructural, Msg: msg} }

// Integrity constructs an integrity fault.
func Integrity(msg string) error { return &Fault{Kind: KindIntegrity, Msg: msg} }

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// KindOf reports the fault kind of err, or zero when err carries none.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

// IsIntegrity reports whether err is an integrity fault.
func IsIntegrity(err error) bool { return KindOf(err) == KindIntegrity }
