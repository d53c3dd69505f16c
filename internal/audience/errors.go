package audience

import "errors"

// ErrBadPayload is returned when a payload cannot be decoded into its type.
var ErrBadPayload = errors.New("bad audience payload")
