package agreement

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	agreementRepo "rentline/database/repository/agreement"
	"rentline/models"
	"rentline/services/imaging"
	"rentline/services/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultAgreementService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Open returns the booking's agreement, creating a draft the first time.
// The booking must have finalized checkout documents.
func (s *DefaultAgreementService) Open(ctx context.Context, bookingID, administratorName string) (*models.Agreement, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Compliance == nil {
		return nil, ErrDocumentsOutstanding
	}

	existing, err := s.Agreements.GetByBookingID(ctx, booking.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, agreementRepo.ErrAgreementNotFound) {
		return nil, fmt.Errorf("agreement.Open: failed to look up agreement for booking %s: %w", bookingID, err)
	}

	a := &models.Agreement{
		Number:            agreementNumber(booking.ID, s.now()),
		BookingID:         booking.ID,
		Status:            models.AgreementDraft,
		AdministratorName: strings.TrimSpace(administratorName),
	}
	if _, err := s.Agreements.Create(ctx, a); err != nil {
		// A concurrent Open won the insert.
		if errors.Is(err, agreementRepo.ErrDuplicateAgreement) {
			if existing, gerr := s.Agreements.GetByBookingID(ctx, booking.ID); gerr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("agreement.Open: failed to create agreement for booking %s: %w", bookingID, err)
	}
	s.Logger.Info("agreement opened", zap.String("agreementID", a.ID), zap.String("bookingID", bookingID), zap.String("number", a.Number))
	s.record(ctx, a, models.ActionOpened, "", "")
	return a, nil
}

// agreementNumber is RA-<yyyymmdd>-<first six booking id characters>.
func agreementNumber(bookingID string, at time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(bookingID, "-", ""))
	if len(short) > 6 {
		short = short[:6]
	}
	return fmt.Sprintf("RA-%s-%s", at.UTC().Format("20060102"), short)
}

func (s *DefaultAgreementService) Get(ctx context.Context, agreementID string) (*models.Agreement, error) {
	return s.Agreements.GetByID(ctx, agreementID)
}

// Sign records one party's signature. Inline signatures are stored first so
// the agreement only ever holds a URL. The store writes the signature and
// status together, so parties signing at the same time both persist and
// exactly one of them sees the agreement become signed and queues it.
func (s *DefaultAgreementService) Sign(ctx context.Context, agreementID string, party models.SignatureParty, signatureRef string) (*models.Agreement, error) {
	if party != models.PartyCustomer && party != models.PartyAdministrator {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParty, party)
	}
	signatureRef = strings.TrimSpace(signatureRef)
	if signatureRef == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidSignature)
	}

	a, err := s.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AgreementCompleted {
		return nil, ErrAlreadyCompleted
	}
	if a.DocumentURL != "" && signatureRef == a.DocumentURL {
		return nil, fmt.Errorf("%w: reference is the agreement document", ErrInvalidSignature)
	}

	ref, err := s.storeSignature(ctx, a.ID, party, signatureRef)
	if err != nil {
		return nil, err
	}

	wasSigned := a.Status == models.AgreementSigned
	a, err = s.Agreements.SetSignature(ctx, a.ID, party, models.Signature{ImageRef: ref, SignedAt: s.now().UTC()})
	if errors.Is(err, agreementRepo.ErrAgreementNotFound) {
		if cur, gerr := s.Agreements.GetByID(ctx, agreementID); gerr == nil && cur.Status == models.AgreementCompleted {
			return nil, ErrAlreadyCompleted
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("agreement.Sign: failed to save agreement %s: %w", agreementID, err)
	}
	s.Logger.Info("agreement signed",
		zap.String("agreementID", a.ID), zap.String("party", string(party)), zap.String("status", string(a.Status)))
	s.record(ctx, a, models.ActionSigned, party, ref)

	if a.Status == models.AgreementSigned && !wasSigned && s.Queue != nil {
		if err := s.Queue.EnqueueGenerateAgreement(ctx, a.ID); err != nil {
			s.Logger.Error("failed to queue agreement generation", zap.String("agreementID", a.ID), zap.Error(err))
		}
	}
	return a, nil
}

// storeSignature uploads inline signatures and returns the reference to
// persist. Remote references are kept as given.
func (s *DefaultAgreementService) storeSignature(ctx context.Context, agreementID string, party models.SignatureParty, ref string) (string, error) {
	if imaging.Classify(ref) != imaging.KindInline {
		return ref, nil
	}
	data, mimeType, err := imaging.DecodeDataURI(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidSignature)
	}

	ext := ".png"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	url, err := s.Storage.Upload(ctx, storage.Object{
		Name:        string(party) + "-" + uuid.New().String() + ext,
		Folder:      path.Join("signatures", agreementID),
		ContentType: mimeType,
		Data:        data,
	})
	if err != nil {
		return "", fmt.Errorf("agreement.Sign: failed to store signature: %w", err)
	}
	return url, nil
}

// Generate composes the agreement, stores the PDF and completes the record.
func (s *DefaultAgreementService) Generate(ctx context.Context, agreementID string) (*models.Agreement, error) {
	a, err := s.Agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if !a.IsFullySigned() {
		return nil, ErrNotFullySigned
	}

	facts, err := s.facts(ctx, a)
	if err != nil {
		return nil, err
	}
	doc, err := s.Composer.Compose(ctx, facts)
	if err != nil {
		return nil, fmt.Errorf("agreement.Generate: failed to compose %s: %w", a.Number, err)
	}

	url, err := s.Storage.Upload(ctx, storage.Object{
		Name:        documentName(a),
		Folder:      "agreements",
		ContentType: doc.ContentType,
		Data:        doc.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("agreement.Generate: failed to store document: %w", err)
	}

	now := s.now().UTC()
	a.DocumentURL = url
	a.DocumentGeneratedAt = &now
	a.Status = models.AgreementCompleted
	if err := s.Agreements.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("agreement.Generate: failed to save agreement %s: %w", a.ID, err)
	}

	fields := []zap.Field{zap.String("agreementID", a.ID), zap.Int("pages", doc.Pages)}
	if len(doc.Fallbacks) > 0 {
		fields = append(fields, zap.Strings("fallbacks", doc.Fallbacks))
	}
	s.Logger.Info("agreement document stored", fields...)
	s.record(ctx, a, models.ActionGenerated, "", url)
	return a, nil
}

// History returns the agreement's audit trail, oldest first.
func (s *DefaultAgreementService) History(ctx context.Context, agreementID string) ([]models.AgreementRecord, error) {
	if _, err := s.Agreements.GetByID(ctx, agreementID); err != nil {
		return nil, err
	}
	if s.Records == nil {
		return []models.AgreementRecord{}, nil
	}
	return s.Records.ListByAgreementID(ctx, agreementID)
}

// record appends to the audit trail. Failures are logged, never returned,
// since the agreement itself is already saved.
func (s *DefaultAgreementService) record(ctx context.Context, a *models.Agreement, action models.AgreementAction, party models.SignatureParty, ref string) {
	if s.Records == nil {
		return
	}
	_, err := s.Records.Create(ctx, models.AgreementRecord{
		AgreementID: a.ID,
		BookingID:   a.BookingID,
		Action:      action,
		Party:       party,
		Reference:   ref,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.Logger.Error("failed to record agreement history",
			zap.String("agreementID", a.ID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *DefaultAgreementService) facts(ctx context.Context, a *models.Agreement) (Facts, error) {
	booking, err := s.Bookings.GetByID(ctx, a.BookingID)
	if err != nil {
		return Facts{}, fmt.Errorf("agreement.Generate: failed to load booking %s: %w", a.BookingID, err)
	}
	vehicle, err := s.Vehicles.GetByID(ctx, booking.VehicleID)
	if err != nil {
		return Facts{}, fmt.Errorf("agreement.Generate: failed to load vehicle %s: %w", booking.VehicleID, err)
	}

	return Facts{
		Number:   a.Number,
		Date:     a.CreatedAt,
		Company:  s.Company,
		Customer: booking.Customer,
		Vehicle:  *vehicle,
		Rental: RentalWindow{
			PickupAt:       booking.PickupAt,
			ReturnAt:       booking.ReturnAt,
			PickupLocation: booking.PickupLocation,
			ReturnLocation: booking.ReturnLocation,
		},
		Insurance:         InsuranceDeclaration,
		Clauses:           Clauses,
		CustomerSignatory: signatory(booking.Customer.FullName, a.CustomerSignature),
		AdminSignatory:    signatory(a.AdministratorName, a.AdminSignature),
	}, nil
}

func signatory(name string, sig *models.Signature) *Signatory {
	s := &Signatory{Name: name}
	if sig != nil {
		s.Ref = sig.ImageRef
		at := sig.SignedAt
		s.SignedAt = &at
	}
	return s
}

func documentName(a *models.Agreement) string {
	name := a.Number
	if name == "" {
		name = a.ID
	}
	return strings.ReplaceAll(name, "/", "-") + ".pdf"
}
