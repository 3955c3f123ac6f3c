package types

import "errors"

// Every error surfaced by a pipeline stage wraps exactly one of these.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUpstream      = errors.New("upstream service error")
	ErrMediaNotFound = errors.New("media not found")
	ErrRenderFailed  = errors.New("render failed")
)
