package fieldsim

import "errors"

var (
	ErrInvalidScript = errors.New("invalid script")
	ErrClosed        = errors.New("field server closed")
)
