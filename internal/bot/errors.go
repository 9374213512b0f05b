package bot

import "errors"

// Command-level error taxonomy. These never escape the interpreter: every one
// is turned into a reply at the command boundary. The names double as metric
// labels.
var (
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrInvalidFormat = errors.New("invalid format")
	ErrNotFound      = errors.New("not found")
)

const (
	errTypeNotLoggedIn   = "not_logged_in"
	errTypeInvalidFormat = "invalid_format"
	errTypeBackend       = "backend"
	errTypeNotFound      = "not_found"
	errTypeAuth          = "auth"
)
