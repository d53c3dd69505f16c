package screen

import "errors"

// ErrUnknownScreen is returned when a name does not match any screen.
var ErrUnknownScreen = errors.New("unknown screen")
