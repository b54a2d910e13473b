package compliance

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"rentline/models"
	"rentline/services/storage"
	"rentline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotView is what the checkout form renders for a slot.
type SlotView struct {
	ID                SlotID                `json:"id"`
	Label             string                `json:"label"`
	HelpText          string                `json:"helpText,omitempty"`
	Required          bool                  `json:"required"`
	NeedsIssueDate    bool                  `json:"needsIssueDate"`
	NeedsDocumentType bool                  `json:"needsDocumentType"`
	DisallowedTypes   []models.DocumentType `json:"disallowedTypes,omitempty"`
}

// RequirementsView is the public shape of a catalog row.
type RequirementsView struct {
	Category               models.BookingCategory `json:"category"`
	NeedsNationalInsurance bool                   `json:"needsNationalInsurance"`
	NeedsFinancialProof    bool                   `json:"needsFinancialProof"`
	NeedsSecondaryLicense  bool                   `json:"needsSecondaryLicense"`
	Slots                  []SlotView             `json:"slots"`
}

// ViewOf flattens requirements for display.
func ViewOf(req Requirements) RequirementsView {
	v := RequirementsView{
		Category:               req.Category,
		NeedsNationalInsurance: req.NeedsNationalInsurance,
		NeedsFinancialProof:    req.NeedsFinancialProof,
		NeedsSecondaryLicense:  req.NeedsSecondaryLicense,
		Slots:                  make([]SlotView, 0, len(req.Slots)),
	}
	for _, s := range req.Slots {
		v.Slots = append(v.Slots, SlotView{
			ID:                s.ID,
			Label:             s.Label,
			HelpText:          s.HelpText,
			Required:          s.Required,
			NeedsIssueDate:    s.NeedsIssueDate(),
			NeedsDocumentType: s.NeedsDocumentType(),
			DisallowedTypes:   s.DisallowedTypes(),
		})
	}
	return v
}

// SessionView is a session together with its freshly computed verdict.
type SessionView struct {
	Session      *CheckoutSession `json:"session"`
	Requirements RequirementsView `json:"requirements"`
	Result       ComplianceResult `json:"result"`
}

// NewCheckoutService wires a checkout service with a real clock.
func NewCheckoutService(sessions SessionStore, bookings BookingStore, store storage.StorageService, logger *zap.Logger) *DefaultCheckoutService {
	return &DefaultCheckoutService{
		Sessions: sessions,
		Bookings: bookings,
		Storage:  store,
		Logger:   logger,
		Now:      time.Now,
	}
}

func (s *DefaultCheckoutService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// referenceDate is the booking date in the business time zone, so a
// booking just after local midnight counts as that local day.
func (s *DefaultCheckoutService) referenceDate(b *models.Booking) time.Time {
	ref := b.ReferenceDate()
	if s.Location == nil || ref.IsZero() {
		return ref
	}
	return ref.In(s.Location)
}

// view evaluates the session. Results are recomputed on every call.
func (s *DefaultCheckoutService) view(sess *CheckoutSession) *SessionView {
	req, err := RequirementsFor(sess.Category)
	label := string(sess.Category)
	if err != nil {
		label = "unknown"
		s.Logger.Error("checkout session has unknown category, using strictest catalog",
			zap.String("sessionID", sess.SessionID), zap.String("category", string(sess.Category)), zap.Error(err))
	}
	res := Evaluate(sess.Input())
	utils.ComplianceEvaluations.WithLabelValues(label, fmt.Sprint(res.IsComplete)).Inc()
	return &SessionView{Session: sess, Requirements: ViewOf(req), Result: res}
}

// Start opens a checkout session for a booking.
func (s *DefaultCheckoutService) Start(ctx context.Context, bookingID string) (*SessionView, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("compliance.Start: failed to load booking %s: %w", bookingID, err)
	}
	if _, err := RequirementsFor(booking.Category); err != nil {
		return nil, fmt.Errorf("compliance.Start: booking %s: %w", bookingID, err)
	}
	sess := &CheckoutSession{
		SessionID:     uuid.New().String(),
		BookingID:     booking.ID,
		Category:      booking.Category,
		ReferenceDate: s.referenceDate(booking),
		LicenseNumber: booking.Customer.LicenseNumber,
		Slots:         NewSlotStates(booking.Category),
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.Logger.Info("checkout document session started",
		zap.String("sessionID", sess.SessionID), zap.String("bookingID", booking.ID), zap.String("category", string(booking.Category)))
	return s.view(sess), nil
}

// Get returns the session and its current verdict.
func (s *DefaultCheckoutService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Apply reduces one slot event into the session.
func (s *DefaultCheckoutService) Apply(ctx context.Context, sessionID string, slot SlotID, ev Event) (*SessionView, error) {
	sess, err := s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		return applyToSlot(cs, slot, ev)
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func applyToSlot(cs *CheckoutSession, slot SlotID, ev Event) error {
	req, _ := RequirementsFor(cs.Category)
	if _, ok := req.Slot(slot); !ok {
		return fmt.Errorf("%w: %q for category %s", ErrUnknownSlot, slot, cs.Category)
	}
	cs.Slots[slot] = Reduce(cs.Slots[slot], ev)
	cs.FinalizedAt = nil
	return nil
}

// SetIdentity updates the licence and national insurance numbers.
func (s *DefaultCheckoutService) SetIdentity(ctx context.Context, sessionID, licenseNumber, niNumber string) (*SessionView, error) {
	sess, err := s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		cs.LicenseNumber = strings.TrimSpace(licenseNumber)
		cs.NationalInsuranceNumber = strings.ToUpper(strings.TrimSpace(niNumber))
		cs.FinalizedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// ChangeCategory switches the catalog, keeping progress on shared slots.
func (s *DefaultCheckoutService) ChangeCategory(ctx context.Context, sessionID string, category models.BookingCategory) (*SessionView, error) {
	if _, err := RequirementsFor(category); err != nil {
		return nil, err
	}
	sess, err := s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		cs.Slots = ApplyCategoryChange(cs.Slots, category)
		cs.Category = category
		cs.FinalizedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// UploadDocument stores a customer document privately and records the
// outcome on the slot. A storage failure is reported through the slot's
// error field, not as a returned error.
func (s *DefaultCheckoutService) UploadDocument(ctx context.Context, sessionID string, slot SlotID, file UploadFile) (*SessionView, error) {
	sess, err := s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		return applyToSlot(cs, slot, StartUpload{FileName: file.Name})
	})
	if err != nil {
		return nil, err
	}

	obj := storage.Object{
		Name:        uuid.New().String() + path.Ext(file.Name),
		Folder:      path.Join("checkout", sess.BookingID, string(slot)),
		ContentType: file.ContentType,
		Data:        file.Data,
	}
	var outcome Event
	url, upErr := s.Storage.UploadPrivate(ctx, obj)
	if upErr != nil {
		s.Logger.Warn("checkout document upload failed",
			zap.String("sessionID", sessionID), zap.String("slot", string(slot)), zap.Error(upErr))
		outcome = UploadFailed{Reason: "upload failed, please try again"}
	} else {
		outcome = UploadSucceeded{URL: url}
	}

	sess, err = s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		return applyToSlot(cs, slot, outcome)
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Finalize writes the compliance payload onto the booking once every
// requirement is met.
func (s *DefaultCheckoutService) Finalize(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	v := s.view(sess)
	if !v.Result.IsComplete {
		return v, ErrIncomplete
	}
	now := s.now().UTC()
	if err := s.Bookings.SaveCompliance(ctx, sess.BookingID, v.Result.Payload(now)); err != nil {
		return nil, fmt.Errorf("compliance.Finalize: failed to save compliance for booking %s: %w", sess.BookingID, err)
	}
	sess, err = s.Sessions.Update(ctx, sessionID, func(cs *CheckoutSession) error {
		cs.FinalizedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("checkout documents finalized", zap.String("sessionID", sessionID), zap.String("bookingID", sess.BookingID))
	return s.view(sess), nil
}

// Engine evaluates ad hoc inputs with logging and metrics.
type Engine struct {
	Logger *zap.Logger
}

// Evaluate runs the pure evaluation and records the outcome.
func (e *Engine) Evaluate(in EvaluationInput) ComplianceResult {
	label := string(in.Category)
	if _, err := RequirementsFor(in.Category); err != nil {
		label = "unknown"
		if e.Logger != nil {
			e.Logger.Error("compliance evaluation with unknown category", zap.String("category", string(in.Category)), zap.Error(err))
		}
	}
	res := Evaluate(in)
	utils.ComplianceEvaluations.WithLabelValues(label, fmt.Sprint(res.IsComplete)).Inc()
	return res
}
