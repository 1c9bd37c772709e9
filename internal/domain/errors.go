// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed validation before any state change.
var ErrValidation = errors.New("validation failed")

// ErrInvalidDecision indicates a vote decision outside the allowed literals.
var ErrInvalidDecision = errors.New("invalid decision")

// ErrCapacityExceeded indicates the live-session limit was reached even after
// an eviction sweep.
var ErrCapacityExceeded = errors.New("session capacity exceeded")
