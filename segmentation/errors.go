package segmentation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoBoundaryFound means no novelty peak survived validation. It never
	// leaves the package: the fallback grid replaces the empty result.
	ErrNoBoundaryFound = errors.New("no phrase boundary found")

	// ErrSongTimeout is returned when a song exceeds its analysis deadline
	ErrSongTimeout = fmt.Errorf("song analysis timed out: %w", context.DeadlineExceeded)

	// ErrEmptySignal is returned for zero-length input
	ErrEmptySignal = errors.New("empty audio signal")
)

// DimensionMismatchError reports a sub-feature with more frames than the
// fusion target
type DimensionMismatchError struct {
	Feature string
	Frames  int
	Target  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("feature %q has %d frames, more than the %d target frames", e.Feature, e.Frames, e.Target)
}

// contextError maps a deadline to ErrSongTimeout and passes other
// cancellations through
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrSongTimeout
	}
	return err
}
