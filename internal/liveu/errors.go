package liveu

import "errors"

// Error kinds returned by the LiveU client. Transport and decode failures
// are wrapped into one of these so callers can match with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials can't login")
	ErrNoInventoriesFound = errors.New("no inventories found")
	ErrNoUnitsFound       = errors.New("no units found")
	ErrStatusNotAvailable = errors.New("status not available")
)
