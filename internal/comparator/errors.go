package comparator

import (
	"fmt"

	"pagediff/pkg/domain"
	"pagediff/pkg/serrors"
)

// SideError reports a failure of one of the two captures.
type SideError struct {
	Side domain.Side
	Err  error
}

func (e *SideError) Error() string { return fmt.Sprintf("side %s: %v", e.Side, e.Err) }

// Unwrap exposes the semantic error so errors.Is matches its kind.
func (e *SideError) Unwrap() error { return e.Err }

// Kind returns the semantic kind of the underlying failure.
func (e *SideError) Kind() serrors.Kind { return serrors.KindOf(e.Err) }

func sideErr(side domain.Side, k serrors.Kind, err error, msgFmt string, args ...any) error {
	return &SideError{Side: side, Err: serrors.Wrap(k, err, msgFmt, args...)}
}
