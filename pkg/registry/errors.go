package registry

import "errors"

var (
	ErrDuplicateRoutingKey = errors.New("routing key already registered")
	ErrDuplicateTaxID      = errors.New("tax id already registered")
	ErrDuplicateDatabase   = errors.New("database name already registered")
	ErrStore               = errors.New("tenant registry failure")
)
