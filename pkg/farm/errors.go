package farm

import "errors"

// Validation errors returned synchronously by façade methods. The farm
// state is left untouched when any of these is returned.
var (
	ErrDuplicateID   = errors.New("duplicate id")
	ErrUnknownClient = errors.New("unknown client")
	ErrUnknownJob    = errors.New("unknown job")
	ErrUnknownNode   = errors.New("unknown node")
)
