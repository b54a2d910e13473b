package compliance

import (
	"encoding/json"
	"fmt"
	"strings"

	"rentline/models"
)

// UploadState is the checkout-side state of one document slot.
type UploadState struct {
	FileName     string              `json:"fileName,omitempty"`
	RemoteURL    string              `json:"remoteUrl,omitempty"`
	Uploading    bool                `json:"uploading"`
	Error        string              `json:"error,omitempty"`
	IssueDate    string              `json:"issueDate,omitempty"`
	DocumentType models.DocumentType `json:"documentType,omitempty"`
}

// Event is a single mutation of an UploadState.
type Event interface {
	apply(UploadState) UploadState
}

// StartUpload marks a new file as in flight. Any earlier URL or error is dropped.
type StartUpload struct {
	FileName string `json:"fileName"`
}

// UploadSucceeded records the durable URL returned by storage.
type UploadSucceeded struct {
	URL string `json:"url"`
}

// UploadFailed records a storage failure.
type UploadFailed struct {
	Reason string `json:"reason"`
}

// Clear resets the slot, metadata included.
type Clear struct{}

// SetIssueDate records the user-entered issue date.
type SetIssueDate struct {
	Date string `json:"date"`
}

// SetDocumentType records the user-selected classification.
type SetDocumentType struct {
	Type models.DocumentType `json:"type"`
}

func (e StartUpload) apply(s UploadState) UploadState {
	s.FileName = e.FileName
	s.RemoteURL = ""
	s.Uploading = true
	s.Error = ""
	return s
}

func (e UploadSucceeded) apply(s UploadState) UploadState {
	s.RemoteURL = strings.TrimSpace(e.URL)
	s.Uploading = false
	s.Error = ""
	return s
}

func (e UploadFailed) apply(s UploadState) UploadState {
	s.RemoteURL = ""
	s.Uploading = false
	s.Error = e.Reason
	if s.Error == "" {
		s.Error = "upload failed"
	}
	return s
}

func (Clear) apply(UploadState) UploadState {
	return UploadState{}
}

func (e SetIssueDate) apply(s UploadState) UploadState {
	s.IssueDate = strings.TrimSpace(e.Date)
	return s
}

func (e SetDocumentType) apply(s UploadState) UploadState {
	s.DocumentType = models.DocumentType(strings.TrimSpace(string(e.Type)))
	return s
}

// Reduce applies ev to state and returns the new state. A nil event is a no-op.
func Reduce(state UploadState, ev Event) UploadState {
	if ev == nil {
		return state
	}
	return ev.apply(state)
}

// Event kinds on the wire.
const (
	EventStartUpload     = "start_upload"
	EventUploadSucceeded = "upload_succeeded"
	EventUploadFailed    = "upload_failed"
	EventClear           = "clear"
	EventSetIssueDate    = "set_issue_date"
	EventSetDocumentType = "set_document_type"
)

// DecodeEvent builds a typed event from its wire kind and JSON payload.
func DecodeEvent(kind string, payload json.RawMessage) (Event, error) {
	var ev Event
	switch kind {
	case EventStartUpload:
		ev = &StartUpload{}
	case EventUploadSucceeded:
		ev = &UploadSucceeded{}
	case EventUploadFailed:
		ev = &UploadFailed{}
	case EventClear:
		return Clear{}, nil
	case EventSetIssueDate:
		ev = &SetIssueDate{}
	case EventSetDocumentType:
		ev = &SetDocumentType{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, ev); err != nil {
			return nil, fmt.Errorf("compliance.DecodeEvent: invalid %s payload: %w", kind, err)
		}
	}
	switch e := ev.(type) {
	case *StartUpload:
		return *e, nil
	case *UploadSucceeded:
		return *e, nil
	case *UploadFailed:
		return *e, nil
	case *SetIssueDate:
		return *e, nil
	case *SetDocumentType:
		return *e, nil
	}
	return ev, nil
}

// NewSlotStates creates an empty state for every slot of category.
func NewSlotStates(category models.BookingCategory) map[SlotID]UploadState {
	req, _ := RequirementsFor(category)
	states := make(map[SlotID]UploadState, len(req.Slots))
	for _, s := range req.Slots {
		states[s.ID] = UploadState{}
	}
	return states
}

// ApplyCategoryChange keeps the state of every slot the new category also
// defines, drops the rest and adds empty states for new slots.
func ApplyCategoryChange(states map[SlotID]UploadState, category models.BookingCategory) map[SlotID]UploadState {
	next := NewSlotStates(category)
	for id := range next {
		if s, ok := states[id]; ok {
			next[id] = s
		}
	}
	return next
}
