package match

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidSettings = errors.New("invalid match settings")
	ErrUnknownStatus   = errors.New("unknown status")
)
