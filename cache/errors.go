package cache

import "errors"

var (
	ErrInvalidCapacity  = errors.New("cache capacity must be at least 1")
	ErrInvalidIndexHint = errors.New("index size hint must not be negative")
	ErrInvalidLength    = errors.New("content length must not be negative")
	ErrShortContent     = errors.New("content is shorter than the given length")
	ErrClosed           = errors.New("cache is closed")
)
