package model

import "errors"

// Sentinel error kinds for envelope handling.
var (
	ErrMissingType = errors.New("envelope type is empty")
	ErrMalformed   = errors.New("malformed envelope")
	ErrEncode      = errors.New("encode envelope data")
	ErrDecode      = errors.New("decode envelope data")
)
