package slip

import "errors"

// ErrNoAmount is returned when no plausible taka amount can be read off a slip.
var ErrNoAmount = errors.New("no amount detected")
