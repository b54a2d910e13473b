//go:build property
// +build property

package compliance

import (
	"reflect"
	"testing"
	"time"

	"rentline/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: moving the issue date later can only turn false into true
// until it passes the reference date.
func TestWithinWindowMonotone(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("later issue dates never leave the window early", prop.ForAll(
		func(refOffset, a, b int) bool {
			ref := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, refOffset)
			if a > b {
				a, b = b, a
			}
			earlier := ref.AddDate(0, 0, a)
			later := ref.AddDate(0, 0, b)
			if b > 0 {
				return !WithinWindow(later, ref, DefaultWindowMonths)
			}
			return !WithinWindow(earlier, ref, DefaultWindowMonths) || WithinWindow(later, ref, DefaultWindowMonths)
		},
		gen.IntRange(0, 3650),
		gen.IntRange(-200, 5),
		gen.IntRange(-200, 5),
	))

	properties.Property("window bounds are inclusive", prop.ForAll(
		func(refOffset int) bool {
			ref := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, refOffset)
			start := subtractMonths(ref, DefaultWindowMonths)
			return WithinWindow(ref, ref, 3) &&
				WithinWindow(start, ref, 3) &&
				!WithinWindow(start.AddDate(0, 0, -1), ref, 3) &&
				!WithinWindow(ref.AddDate(0, 0, 1), ref, 3)
		},
		gen.IntRange(0, 3650),
	))

	properties.TestingRun(t)
}

// Property: Evaluate(x) == Evaluate(x) for any input.
func TestEvaluatePure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	categories := append(Categories(), models.BookingCategory("unknown"))

	properties.Property("evaluate is deterministic", prop.ForAll(
		func(catIdx int, licence, ni, url, issue string, typeIdx int) bool {
			docType := models.KnownDocumentTypes[typeIdx]
			in := EvaluationInput{
				Category:                categories[catIdx],
				LicenseNumber:           licence,
				NationalInsuranceNumber: ni,
				ReferenceDate:           bookedAt,
				Slots: map[SlotID]UploadState{
					SlotLicenceFront:   {RemoteURL: url},
					SlotProofOfAddress: {RemoteURL: url, IssueDate: issue, DocumentType: docType},
				},
			}
			return reflect.DeepEqual(Evaluate(in), Evaluate(in))
		},
		gen.IntRange(0, len(categories)-1),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.OneConstOf("", "2024-06-01", "2023-01-01", "garbage"),
		gen.IntRange(0, len(models.KnownDocumentTypes)-1),
	))

	properties.TestingRun(t)
}
