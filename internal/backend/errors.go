package backend

import "errors"

var (
	ErrUserExists         = errors.New("backend: username already registered")
	ErrUserNotFound       = errors.New("backend: user not found")
	ErrInvalidCredentials = errors.New("backend: invalid username or password")
	ErrInvalidInput       = errors.New("backend: invalid input")
	ErrNoHospital         = errors.New("backend: no hospital serves that department")
)
