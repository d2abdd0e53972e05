package timer

import "errors"

var (
	ErrNotFound     = errors.New("timer not found")
	ErrInvalidInput = errors.New("invalid input")
)
