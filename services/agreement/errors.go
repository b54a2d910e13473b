package agreement

import "errors"

var (
	// ErrInvalidSignature is returned for signature references that are
	// empty, not images, or point at a finished agreement document.
	ErrInvalidSignature = errors.New("agreement: invalid signature reference")
	// ErrInvalidParty is returned for an unknown signing party.
	ErrInvalidParty = errors.New("agreement: unknown signing party")
	// ErrNotFullySigned is returned by Generate before both parties signed.
	ErrNotFullySigned = errors.New("agreement: both parties must sign first")
	// ErrAlreadyCompleted is returned when signing an agreement whose
	// document has been produced.
	ErrAlreadyCompleted = errors.New("agreement: agreement already completed")
	// ErrDocumentsOutstanding is returned when opening an agreement for a
	// booking whose checkout documents were never finalized.
	ErrDocumentsOutstanding = errors.New("agreement: booking documents not finalized")
)
