package cache

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InvariantError marks a programmer-error condition spec §7 says "must
// never fire on a well-formed configuration". In this package the one
// such check is a write request reaching an instruction cache; a
// non-power-of-two derived set count is reported by New as an ordinary
// error, and there is no last-tag memoization to check. It carries a
// captured stack trace via cockroachdb/errors so the abort diagnostic is
// actionable.
type InvariantError struct {
	err error
}

func (e *InvariantError) Error() string { return e.err.Error() }
func (e *InvariantError) Unwrap() error { return e.err }

// invariant panics with a stack-annotated InvariantError if cond is
// false. Called at points spec §4.4 marks as invariant checks.
func invariant(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	panic(&InvariantError{err: errors.WithStack(fmt.Errorf(format, args...))})
}
