package compliance

import (
	"encoding/json"
	"testing"

	"rentline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceUploadLifecycle(t *testing.T) {
	s := Reduce(UploadState{}, StartUpload{FileName: "bill.pdf"})
	assert.Equal(t, UploadState{FileName: "bill.pdf", Uploading: true}, s)

	s = Reduce(s, UploadSucceeded{URL: " https://files.example/bill.pdf "})
	assert.Equal(t, UploadState{FileName: "bill.pdf", RemoteURL: "https://files.example/bill.pdf"}, s)

	s = Reduce(s, SetIssueDate{Date: "2024-06-01"})
	s = Reduce(s, SetDocumentType{Type: models.DocCouncilTax})
	assert.Equal(t, "2024-06-01", s.IssueDate)
	assert.Equal(t, models.DocCouncilTax, s.DocumentType)

	// A replacement upload keeps the metadata but drops the stale URL.
	s = Reduce(s, StartUpload{FileName: "bill-2.pdf"})
	assert.Empty(t, s.RemoteURL)
	assert.True(t, s.Uploading)
	assert.Equal(t, "2024-06-01", s.IssueDate)

	s = Reduce(s, UploadFailed{})
	assert.False(t, s.Uploading)
	assert.Equal(t, "upload failed", s.Error)

	s = Reduce(s, StartUpload{FileName: "bill-3.pdf"})
	assert.Empty(t, s.Error)

	assert.Equal(t, UploadState{}, Reduce(s, Clear{}))
}

func TestReduceNilEvent(t *testing.T) {
	s := UploadState{FileName: "x"}
	assert.Equal(t, s, Reduce(s, nil))
}

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		kind    string
		payload string
		want    Event
	}{
		{EventStartUpload, `{"fileName":"a.jpg"}`, StartUpload{FileName: "a.jpg"}},
		{EventUploadSucceeded, `{"url":"https://x/a.jpg"}`, UploadSucceeded{URL: "https://x/a.jpg"}},
		{EventUploadFailed, `{"reason":"timeout"}`, UploadFailed{Reason: "timeout"}},
		{EventClear, ``, Clear{}},
		{EventSetIssueDate, `{"date":"2024-01-01"}`, SetIssueDate{Date: "2024-01-01"}},
		{EventSetDocumentType, `{"type":"utility_bill"}`, SetDocumentType{Type: models.DocUtilityBill}},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			ev, err := DecodeEvent(tc.kind, json.RawMessage(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent("explode", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent(EventSetIssueDate, json.RawMessage(`{"date":`))
	assert.Error(t, err)
}

func TestNewSlotStates(t *testing.T) {
	states := NewSlotStates(models.CategoryStandard)
	assert.Len(t, states, 4)
	assert.Contains(t, states, SlotProofOfAddress)
	assert.NotContains(t, states, SlotBankStatement)
}

func TestApplyCategoryChangeKeepsSharedSlots(t *testing.T) {
	states := NewSlotStates(models.CategoryCommercialHire)
	states[SlotLicenceFront] = UploadState{RemoteURL: "https://x/front.jpg"}
	states[SlotSecondaryLicence] = UploadState{RemoteURL: "https://x/second.jpg"}

	next := ApplyCategoryChange(states, models.CategoryStandard)
	assert.Equal(t, "https://x/front.jpg", next[SlotLicenceFront].RemoteURL)
	assert.NotContains(t, next, SlotSecondaryLicence)
	assert.NotContains(t, next, SlotBankStatement)

	back := ApplyCategoryChange(next, models.CategoryFlexiTerm)
	assert.Equal(t, "https://x/front.jpg", back[SlotLicenceFront].RemoteURL)
	assert.Contains(t, back, SlotBankStatement)
	assert.Equal(t, UploadState{}, back[SlotBankStatement])

	// The input map is left alone.
	assert.Contains(t, states, SlotSecondaryLicence)
}
