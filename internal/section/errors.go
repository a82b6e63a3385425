package section

import "errors"

// Validation failures returned by Chain operations. All of them leave the
// chain exactly as it was before the call.
var (
	ErrDuplicateConnection = errors.New("both stations are already on the line")
	ErrDisconnectedSegment = errors.New("section does not touch the line")
	ErrInvalidDistance     = errors.New("section distance must be positive and shorter than the section it splits")
	ErrMinimumChainSize    = errors.New("line must keep at least one section")
	ErrStationNotFound     = errors.New("station is not on the line")
	ErrNoStartFound        = errors.New("line has no start station")
	ErrSameStation         = errors.New("section must connect two different stations")
	ErrBrokenChain         = errors.New("sections do not form a single path")
)

// IsValidation reports whether err is one of the chain validation failures a
// caller can answer with a bad request.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrDuplicateConnection),
		errors.Is(err, ErrDisconnectedSegment),
		errors.Is(err, ErrInvalidDistance),
		errors.Is(err, ErrMinimumChainSize),
		errors.Is(err, ErrSameStation):
		return true
	}
	return false
}
