package domain

import "errors"

// ErrSessionBusy is returned when a pairing is already running for the same session.
var ErrSessionBusy = errors.New("pairing already in progress for this number")

// ErrLockHeld is returned by a DistributedLocker when another holder owns the key.
var ErrLockHeld = errors.New("lock held by another owner")

// ErrMissingNumber is returned when a pairing code is needed but the request has no digits.
var ErrMissingNumber = errors.New("phone number is required to request a pairing code")

// ErrRetriesExhausted is returned when the connection kept closing past MaxRetries.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ErrAuthRejected is returned when the server explicitly rejected the session (401).
var ErrAuthRejected = errors.New("authentication rejected")

// ErrInvalidInput marks request input rejected before any session is touched.
var ErrInvalidInput = errors.New("invalid input")
