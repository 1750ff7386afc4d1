package psxcore

import "fmt"

// InvariantError is the panic value raised when a bookkeeping invariant
// (I1-I5) is violated. These indicate a programming error in the caller
// or in psxcore itself; the core never attempts to recover from one in
// production code (§10.3).
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("psxcore: invariant %s violated: %s", e.Invariant, e.Detail)
}

func invariantViolation(invariant, detail string) {
	panic(&InvariantError{Invariant: invariant, Detail: detail})
}
