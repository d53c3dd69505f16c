package sponsor

import "errors"

var (
	ErrRequest = errors.New("sponsor slides request failed")
	ErrStatus  = errors.New("sponsor slides unexpected status")
	ErrDecode  = errors.New("sponsor slides decode failed")
)
