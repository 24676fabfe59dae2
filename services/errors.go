package services

import "errors"

// Shared error taxonomy of the service layer. Handlers map these onto
// HTTP statuses; none of them are retried internally.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Admission validation errors: reported to the caller immediately,
	// no state change.
	ErrQueueLocked    = errors.New("queue is locked")
	ErrBlacklisted    = errors.New("user is blacklisted from this queue")
	ErrRoleIneligible = errors.New("user does not have a required role for this queue")
	ErrAlreadyQueued  = errors.New("user is already in the queue")
	ErrNotQueued      = errors.New("user is not in the queue")

	// Concurrency conflict: the caller acted on a stale view, not a bug.
	ErrMatchAlreadyTerminal = errors.New("match is already completed or cancelled")

	// Match lifecycle validation.
	ErrNotInMatch      = errors.New("user is not a participant of this match")
	ErrInvalidTeam     = errors.New("team must be 1 or 2")
	ErrMatchNotActive  = errors.New("no active match with this id")
	ErrMatchInProgress = errors.New("match result can only be modified after completion")

	// Authentication and authorization.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Configuration validation.
	ErrInvalidTeamSize = errors.New("team size must be between 1 and 10")
	ErrInvalidTeamMode = errors.New("unknown team selection mode")
	ErrInvalidGameMode = errors.New("unknown game mode")
	ErrInvalidRankBand = errors.New("rank band range is invalid")

	ErrUserNotFound   = errors.New("user not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrMatchNotFound  = errors.New("match not found")
)
