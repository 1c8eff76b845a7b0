package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalid          = errors.New("invalid")
	ErrConflict         = errors.New("conflict")
	ErrTooMany          = errors.New("too many requests")
	ErrInternal         = errors.New("internal")
	ErrGraphUnavailable = errors.New("knowledge graph unavailable")
	ErrNoTextExtracted  = errors.New("no text extracted")
	ErrChunkerStalled   = errors.New("chunker failed to advance")
	ErrInvalidFile      = errors.New("invalid file")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
