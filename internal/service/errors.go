package service

import "errors"

var (
	// ErrAuthenticationFailed covers both unknown usernames and wrong
	// passwords; the distinction is deliberately withheld from callers.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUsernameTaken and ErrEmailTaken reject duplicate signups.
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already in use")

	// ErrRoleNotFound indicates a role row the bootstrap should have created
	// is missing. Fatal to the signup request, not to the process.
	ErrRoleNotFound = errors.New("role is not found")
)
