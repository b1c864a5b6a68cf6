// Package comparator runs the two page captures of a comparison side by side
// and turns them into a pixel diff.
package comparator

import (
	"context"

	"pagediff/pkg/domain"
)

//go:generate mockgen -package mockcomparator -source=interface.go -destination=mock/mockcomparator.go *
type Comparator interface {
	// Compare renders both pages concurrently and, when opts.Enabled is set,
	// diffs the screenshots. It either returns a complete outcome or an error;
	// side-specific failures are reported as *SideError.
	Compare(ctx context.Context, a, b domain.CaptureRequest, opts domain.DiffOptions) (*domain.ComparisonOutcome, error)
}
