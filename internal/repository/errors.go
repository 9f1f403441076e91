// Package repository persists users and their refresh tokens in MySQL. The
// sentinel errors defined here let handlers translate store outcomes into the
// HTTP error taxonomy without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned by Create when the normalized email already has
// an account. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user row matches the lookup. Handlers
// translate it into 401 (login) or 404 (me), depending on the boundary.
var ErrUserNotFound = errors.New("user not found")

// ErrTokenNotFound is returned when a refresh-token hash has no live row —
// never issued, already rotated out, or already deleted. The distinction is
// invisible to clients; all of them surface as HTTP 401.
var ErrTokenNotFound = errors.New("refresh token not found")
