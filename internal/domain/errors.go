package domain

import "errors"

var (
	// ErrNotFound: the referenced order, ticket, bill or menu item does not exist (any more).
	ErrNotFound = errors.New("not found")
	// ErrStateConflict: persisted state no longer matches what the caller expected.
	ErrStateConflict = errors.New("state conflict")
	// ErrStorage wraps every other failure of the storage collaborator.
	ErrStorage = errors.New("storage failure")
	// ErrNoAdapter: no notification adapter is registered for the order's channel.
	ErrNoAdapter = errors.New("no notification adapter for channel")
	// ErrUnsupported: the adapter exists but lacks the capability for this event.
	ErrUnsupported = errors.New("notification not supported by adapter")
	// ErrImmutable guards records that must never be rewritten.
	ErrImmutable = errors.New("record is immutable")
	// ErrBillLocked: the bill has been paid and can no longer change.
	ErrBillLocked = errors.New("bill already paid")
	// ErrAutomationDisabled: the order opted out of automation.
	ErrAutomationDisabled = errors.New("automation disabled for order")
	ErrValidation         = errors.New("validation failed")
)
