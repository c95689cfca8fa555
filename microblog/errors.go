package microblog

import "errors"

var (
	ErrStorage    = errors.New("storage_error")
	ErrNotFound   = errors.New("not_found")
	ErrValidation = errors.New("validation_error")
	ErrCache      = errors.New("cache_error")
)
