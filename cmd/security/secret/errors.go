package secret

import "errors"

// Public, stable errors for callers.
var (
	ErrKeyMissing  = errors.New("process secret missing")
	ErrKeyTooShort = errors.New("process secret too short")
)
