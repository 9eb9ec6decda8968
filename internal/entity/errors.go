package entity

import "errors"

var (
	// Ticket errors
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketAlreadyUsed = errors.New("ticket already used")
	ErrGenerationLocked  = errors.New("ticket generation is locked")
	ErrNoTickets         = errors.New("no tickets available")

	// Fundraising errors
	ErrContributionNotFound = errors.New("contribution not found")

	// Sync errors
	ErrOffline          = errors.New("device is offline")
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrSyncDisabled     = errors.New("cloud sync is not configured")
	ErrQueueItemDropped = errors.New("queue item dropped after max retries")

	// Storage errors
	ErrStorageUnavailable = errors.New("all storage backends unavailable")

	// Import errors
	ErrMissingIDColumn   = errors.New("csv must include a ticket id column")
	ErrInvalidImportFile = errors.New("invalid import file format")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
