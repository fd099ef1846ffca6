// Package repository provides MySQL-backed persistence for the booking
// core: the resource catalog and the durable booking record store. This
// file defines sentinel error values reused across repositories so that
// higher layers such as handlers can distinguish between failure
// scenarios without string matching.
package repository

import "errors"

// ErrBookingNotFound is returned when no booking exists for the given
// identifier. Handlers should translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrResourceNotFound is returned when a catalog lookup finds no
// resource for the given identifier within the requested scope.
var ErrResourceNotFound = errors.New("resource not found")

// ErrInvalidTransition is returned when a status update would move a
// booking out of a terminal state, such as cancelling an
// already-cancelled booking. Handlers should translate this into an
// HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid status transition")
