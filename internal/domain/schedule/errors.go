package schedule

import "errors"

var (
	// ErrInvalidCadence is returned for malformed, out-of-range or never-firing cadences.
	ErrInvalidCadence = errors.New("invalid cadence")
	// ErrInvalidArgument is returned for arguments the engine cannot work with,
	// such as a negative window count or an empty window set.
	ErrInvalidArgument = errors.New("invalid argument")
)
