package reminder

import "errors"

// ErrTaskNotFound is returned by task stores when no task has the requested ID.
var ErrTaskNotFound = errors.New("reminder: task not found")

// ErrUserNotFound is returned by user stores when no user matches.
var ErrUserNotFound = errors.New("reminder: user not found")

// ErrUserExists is returned when creating a user whose email is already registered.
var ErrUserExists = errors.New("reminder: user already exists")

// ErrStatusConflict is returned when a conditional status update finds the task
// in a different state than expected.
var ErrStatusConflict = errors.New("reminder: task status changed concurrently")

// ErrEnqueue wraps scheduler failures when placing a dispatch message.
var ErrEnqueue = errors.New("reminder: enqueue dispatch")

// ErrUnknownChannel is returned when parsing an unsupported delivery channel.
var ErrUnknownChannel = errors.New("reminder: unknown channel")

// ErrUnknownStatus is returned when parsing an invalid status.
var ErrUnknownStatus = errors.New("reminder: unknown status")

// ErrNoDeliverer is returned when a task's channel has no registered deliverer.
var ErrNoDeliverer = errors.New("reminder: no deliverer for channel")

// ErrNoRecipient is returned when a task's owner has no address for its channel.
var ErrNoRecipient = errors.New("reminder: owner has no address for channel")

// ErrBadEnvelope is returned when a scheduler payload is not a usable dispatch message.
var ErrBadEnvelope = errors.New("reminder: bad dispatch envelope")
