package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("operation forbidden")
	ErrUnauthorized    = errors.New("caller is not an administrator")
	ErrAwaitTimeout    = errors.New("timed out waiting for input")
	ErrActiveSession   = errors.New("user already has an active registration session")
	ErrSurfaceGone     = errors.New("target surface is no longer usable")
	ErrConfigMissing   = errors.New("registration system is not set up")
	ErrNoQuestions     = errors.New("no registration questions configured")
	ErrWrongChannel    = errors.New("command must run in the registration channel")
	ErrDMUnavailable   = errors.New("cannot open a direct-message channel")
)
