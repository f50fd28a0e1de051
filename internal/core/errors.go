package core

import "errors"

var (
	ErrAnnotationFailed  = errors.New("link annotation failed")
	ErrQueryFailed       = errors.New("vault query failed")
	ErrMalformedResponse = errors.New("malformed model response")

	ErrBlankQuestion = errors.New("question is blank")
	ErrQueryInFlight = errors.New("a query is already in flight")
	ErrInvalidTheme  = errors.New("unknown theme")
)
