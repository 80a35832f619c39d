package composite

import "errors"

var (
	// ErrNoInputs is returned when stacking is asked to fold zero series
	ErrNoInputs = errors.New("no composite series to stack")
	// ErrDuplicateBand is returned when stacked series share a band name
	ErrDuplicateBand = errors.New("duplicate band name")
	// ErrMissingBand is returned when a band operation references an absent band
	ErrMissingBand = errors.New("missing band")
)
