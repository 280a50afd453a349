package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNoMigrations       = fmt.Errorf("no migrations to roll back")

	// Request errors, mapped to HTTP status codes by the server package
	ErrUnauthenticated = fmt.Errorf("not authenticated")
	ErrForbidden       = fmt.Errorf("forbidden: admin only")
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInternal        = fmt.Errorf("internal error")

	// Backend errors
	ErrAdminCheckFailed  = fmt.Errorf("admin check failed")
	ErrCompilationFailed = fmt.Errorf("descriptor compilation failed")
	ErrAccountNotFound   = fmt.Errorf("account not found")
	ErrAPIRequest        = fmt.Errorf("API request failed")
	ErrUnknownBackend    = fmt.Errorf("unknown backend")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
