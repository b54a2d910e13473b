package compliance

import "errors"

var (
	// ErrUnknownCategory means a booking category is missing from the catalog.
	// It indicates a configuration defect, not bad user data.
	ErrUnknownCategory = errors.New("compliance: unknown booking category")

	// ErrUnknownSlot is returned when an event targets a slot the active
	// catalog does not define.
	ErrUnknownSlot = errors.New("compliance: unknown document slot")

	// ErrUnknownEvent is returned by DecodeEvent for unrecognised event kinds.
	ErrUnknownEvent = errors.New("compliance: unknown upload event")

	// ErrSessionNotFound is returned when a checkout session expired or never existed.
	ErrSessionNotFound = errors.New("compliance: checkout session not found")

	// ErrIncomplete is returned by Finalize while documents are outstanding.
	ErrIncomplete = errors.New("compliance: checkout documents incomplete")
)
