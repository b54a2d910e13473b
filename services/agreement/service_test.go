package agreement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	agreementRepo "rentline/database/repository/agreement"
	"rentline/models"
	"rentline/services/imaging"
	"rentline/services/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errNotFound = errors.New("not found")

type memAgreements map[string]*models.Agreement

func (m memAgreements) Create(_ context.Context, a *models.Agreement) (string, error) {
	for _, existing := range m {
		if existing.BookingID == a.BookingID {
			return "", agreementRepo.ErrDuplicateAgreement
		}
	}
	a.ID = fmt.Sprintf("ag-%d", len(m)+1)
	a.CreatedAt = agreementDate
	cp := *a
	m[a.ID] = &cp
	return a.ID, nil
}

func (m memAgreements) GetByID(_ context.Context, id string) (*models.Agreement, error) {
	a, ok := m[id]
	if !ok {
		return nil, agreementRepo.ErrAgreementNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAgreements) GetByBookingID(_ context.Context, bookingID string) (*models.Agreement, error) {
	for _, a := range m {
		if a.BookingID == bookingID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, agreementRepo.ErrAgreementNotFound
}

func (m memAgreements) SetSignature(_ context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error) {
	a, ok := m[id]
	if !ok || a.Status == models.AgreementCompleted {
		return nil, agreementRepo.ErrAgreementNotFound
	}
	if party == models.PartyAdministrator {
		a.AdminSignature = &sig
	} else {
		a.CustomerSignature = &sig
	}
	a.Status = models.AgreementPendingSignatures
	if a.IsFullySigned() {
		a.Status = models.AgreementSigned
	}
	cp := *a
	return &cp, nil
}

func (m memAgreements) Update(_ context.Context, a *models.Agreement) error {
	if _, ok := m[a.ID]; !ok {
		return agreementRepo.ErrAgreementNotFound
	}
	cp := *a
	m[a.ID] = &cp
	return nil
}

type memBookings map[string]*models.Booking

func (m memBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := m[id]; ok {
		return b, nil
	}
	return nil, errNotFound
}

type memVehicles map[string]*models.Vehicle

func (m memVehicles) GetByID(_ context.Context, id string) (*models.Vehicle, error) {
	if v, ok := m[id]; ok {
		return v, nil
	}
	return nil, errNotFound
}

type memHistory struct {
	mu      sync.Mutex
	records []models.AgreementRecord
}

func (h *memHistory) Create(_ context.Context, r models.AgreementRecord) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.ID = fmt.Sprintf("r-%d", len(h.records)+1)
	h.records = append(h.records, r)
	return r.ID, nil
}

func (h *memHistory) ListByAgreementID(_ context.Context, id string) ([]models.AgreementRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []models.AgreementRecord{}
	for _, r := range h.records {
		if r.AgreementID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) EnqueueGenerateAgreement(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type serviceFixture struct {
	svc        *DefaultAgreementService
	agreements memAgreements
	files      *storage.MemoryStorage
	queue      *recordingQueue
	history    *memHistory
}

func newServiceFixture(t *testing.T) *serviceFixture {
	agreements := memAgreements{"ag-1": {
		ID: "ag-1", Number: "RA-0001", BookingID: "bk-1", Status: models.AgreementDraft,
		AdministratorName: "Alex Reed", CreatedAt: agreementDate,
	}}
	bookings := memBookings{"bk-1": {
		ID: "bk-1", VehicleID: "veh-1", Category: models.CategoryStandard,
		Customer: testFacts().Customer,
		PickupAt: agreementDate.Add(24 * time.Hour), ReturnAt: agreementDate.Add(72 * time.Hour),
	}, "bk-2": {
		ID: "0f3a9c2e-1111-4222-8333-944445555666", VehicleID: "veh-1", Category: models.CategoryStandard,
		Customer:   testFacts().Customer,
		Compliance: &models.CompliancePayload{LicenseNumber: "MORGA753116SM9IJ"},
	}, "bk-3": {
		ID: "bk-3", VehicleID: "veh-1", Category: models.CategoryStandard,
	}}
	vehicles := memVehicles{"veh-1": {ID: "veh-1", Make: "Ford", Model: "Transit Custom", Registration: "AB22 CDE"}}

	files := storage.NewMemoryStorage("k")
	queue := &recordingQueue{}
	history := &memHistory{}
	comp := &Compositor{Logger: zaptest.NewLogger(t)}
	svc := &DefaultAgreementService{
		Agreements: agreements,
		Bookings:   bookings,
		Vehicles:   vehicles,
		Storage:    files,
		Composer:   comp,
		Queue:      queue,
		Records:    history,
		Company:    testFacts().Company,
		Logger:     zaptest.NewLogger(t),
		Now:        func() time.Time { return agreementDate.Add(2 * time.Hour) },
	}
	return &serviceFixture{svc: svc, agreements: agreements, files: files, queue: queue, history: history}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	a, err := f.svc.Open(ctx, "bk-2", "  Alex Reed ")
	require.NoError(t, err)
	assert.Equal(t, models.AgreementDraft, a.Status)
	assert.Equal(t, "RA-20240615-0F3A9C", a.Number)
	assert.Equal(t, "Alex Reed", a.AdministratorName)
	assert.Equal(t, "0f3a9c2e-1111-4222-8333-944445555666", a.BookingID)

	again, err := f.svc.Open(ctx, "bk-2", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, "Alex Reed", again.AdministratorName)

	_, err = f.svc.Open(ctx, "bk-3", "Alex Reed")
	assert.ErrorIs(t, err, ErrDocumentsOutstanding)

	_, err = f.svc.Open(ctx, "nope", "Alex Reed")
	assert.ErrorIs(t, err, errNotFound)
}

func TestSignFlow(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	a, err := f.svc.Sign(ctx, "ag-1", models.PartyCustomer, signaturePNG(t, 100, 40))
	require.NoError(t, err)
	assert.Equal(t, models.AgreementPendingSignatures, a.Status)
	require.NotNil(t, a.CustomerSignature)
	assert.Contains(t, a.CustomerSignature.ImageRef, "memory://signatures/ag-1/customer-")
	assert.Empty(t, f.queue.ids)

	obj, ok := f.files.Stat(a.CustomerSignature.ImageRef)
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)

	a, err = f.svc.Sign(ctx, "ag-1", models.PartyAdministrator, "https://cdn.example/admin.png")
	require.NoError(t, err)
	assert.Equal(t, models.AgreementSigned, a.Status)
	assert.Equal(t, "https://cdn.example/admin.png", a.AdminSignature.ImageRef)
	assert.Equal(t, []string{"ag-1"}, f.queue.ids)

	a, err = f.svc.Sign(ctx, "ag-1", models.PartyCustomer, "https://cdn.example/customer-v2.png")
	require.NoError(t, err)
	assert.Equal(t, models.AgreementSigned, a.Status)
	assert.Equal(t, "https://cdn.example/admin.png", a.AdminSignature.ImageRef)
	assert.Equal(t, []string{"ag-1"}, f.queue.ids)
}

func TestSignRejectsBadReferences(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Sign(ctx, "ag-1", models.PartyCustomer, "  ")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.svc.Sign(ctx, "ag-1", models.PartyCustomer, imaging.EncodeDataURI("application/pdf", []byte("%PDF-1.4")))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.svc.Sign(ctx, "ag-1", "witness", "https://cdn.example/x.png")
	assert.ErrorIs(t, err, ErrInvalidParty)

	f.agreements["ag-1"].DocumentURL = "https://cdn.example/agreements/RA-0001.pdf"
	_, err = f.svc.Sign(ctx, "ag-1", models.PartyCustomer, "https://cdn.example/agreements/RA-0001.pdf")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.svc.Sign(ctx, "missing", models.PartyCustomer, "https://cdn.example/x.png")
	assert.ErrorIs(t, err, agreementRepo.ErrAgreementNotFound)
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Generate(ctx, "ag-1")
	assert.ErrorIs(t, err, ErrNotFullySigned)

	_, err = f.svc.Sign(ctx, "ag-1", models.PartyCustomer, signaturePNG(t, 100, 40))
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, "ag-1", models.PartyAdministrator, signaturePNG(t, 100, 40))
	require.NoError(t, err)

	a, err := f.svc.Generate(ctx, "ag-1")
	require.NoError(t, err)
	assert.Equal(t, models.AgreementCompleted, a.Status)
	assert.Equal(t, "memory://agreements/RA-0001.pdf", a.DocumentURL)
	require.NotNil(t, a.DocumentGeneratedAt)
	assert.NotEqual(t, a.DocumentURL, a.CustomerSignature.ImageRef)

	obj, ok := f.files.Stat(a.DocumentURL)
	require.True(t, ok)
	assert.Equal(t, ContentTypePDF, obj.ContentType)
	assert.Equal(t, "%PDF-", string(obj.Data[:5]))

	stored, _ := f.agreements.GetByID(ctx, "ag-1")
	assert.Equal(t, models.AgreementCompleted, stored.Status)

	_, err = f.svc.Sign(ctx, "ag-1", models.PartyCustomer, "https://cdn.example/again.png")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestGenerateMissingVehicle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.svc.Vehicles = memVehicles{}
	f.agreements["ag-1"].CustomerSignature = &models.Signature{ImageRef: "https://x/c.png"}
	f.agreements["ag-1"].AdminSignature = &models.Signature{ImageRef: "https://x/a.png"}

	_, err := f.svc.Generate(ctx, "ag-1")
	assert.ErrorIs(t, err, errNotFound)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Sign(ctx, "ag-1", models.PartyCustomer, signaturePNG(t, 100, 40))
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, "ag-1", models.PartyAdministrator, "https://cdn.example/admin.png")
	require.NoError(t, err)
	a, err := f.svc.Generate(ctx, "ag-1")
	require.NoError(t, err)

	records, err := f.svc.History(ctx, "ag-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.ActionSigned, records[0].Action)
	assert.Equal(t, models.PartyCustomer, records[0].Party)
	assert.Equal(t, models.PartyAdministrator, records[1].Party)
	assert.Equal(t, "https://cdn.example/admin.png", records[1].Reference)
	assert.Equal(t, models.ActionGenerated, records[2].Action)
	assert.Equal(t, a.DocumentURL, records[2].Reference)
	assert.Equal(t, "bk-1", records[2].BookingID)

	_, err = f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, agreementRepo.ErrAgreementNotFound)

	f.svc.Records = nil
	records, err = f.svc.History(ctx, "ag-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// lockedAgreements serializes store access and holds every GetByID until
// both signers have read, so neither sees the other's signature up front.
type lockedAgreements struct {
	mu      sync.Mutex
	store   memAgreements
	readers int
	release chan struct{}
}

func (l *lockedAgreements) Create(ctx context.Context, a *models.Agreement) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Create(ctx, a)
}

func (l *lockedAgreements) GetByBookingID(ctx context.Context, bookingID string) (*models.Agreement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetByBookingID(ctx, bookingID)
}

func (l *lockedAgreements) GetByID(ctx context.Context, id string) (*models.Agreement, error) {
	l.mu.Lock()
	a, err := l.store.GetByID(ctx, id)
	l.readers++
	if l.readers == 2 {
		close(l.release)
	}
	l.mu.Unlock()
	<-l.release
	return a, err
}

func (l *lockedAgreements) SetSignature(ctx context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.SetSignature(ctx, id, party, sig)
}

func (l *lockedAgreements) Update(ctx context.Context, a *models.Agreement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Update(ctx, a)
}

func TestSignConcurrentPartiesKeepBothSignatures(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.svc.Agreements = &lockedAgreements{store: f.agreements, release: make(chan struct{})}

	refs := map[models.SignatureParty]string{
		models.PartyCustomer:      "https://cdn.example/customer.png",
		models.PartyAdministrator: "https://cdn.example/admin.png",
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(refs))
	for party, ref := range refs {
		wg.Add(1)
		go func(party models.SignatureParty, ref string) {
			defer wg.Done()
			_, err := f.svc.Sign(ctx, "ag-1", party, ref)
			errs <- err
		}(party, ref)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final := f.agreements["ag-1"]
	require.True(t, final.IsFullySigned())
	assert.Equal(t, "https://cdn.example/customer.png", final.CustomerSignature.ImageRef)
	assert.Equal(t, "https://cdn.example/admin.png", final.AdminSignature.ImageRef)
	assert.Equal(t, models.AgreementSigned, final.Status)
	assert.Equal(t, []string{"ag-1"}, f.queue.ids)
}

// staleLookup misses the first booking lookup, as when two Open calls
// both check before either inserts.
type staleLookup struct {
	memAgreements
	missed bool
}

func (s *staleLookup) GetByBookingID(ctx context.Context, bookingID string) (*models.Agreement, error) {
	if !s.missed {
		s.missed = true
		return nil, agreementRepo.ErrAgreementNotFound
	}
	return s.memAgreements.GetByBookingID(ctx, bookingID)
}

func TestOpenLosingInsertReturnsExistingAgreement(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.agreements["ag-9"] = &models.Agreement{
		ID: "ag-9", Number: "RA-20240615-0F3A9C", BookingID: "0f3a9c2e-1111-4222-8333-944445555666",
		Status: models.AgreementDraft, AdministratorName: "Alex Reed",
	}
	f.svc.Agreements = &staleLookup{memAgreements: f.agreements}

	a, err := f.svc.Open(ctx, "bk-2", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, "ag-9", a.ID)
	assert.Equal(t, "Alex Reed", a.AdministratorName)
	assert.Len(t, f.agreements, 2)
	assert.Empty(t, f.history.records)
}

func TestSignCompletedBetweenReadAndWrite(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.svc.Agreements = &completesOnSign{memAgreements: f.agreements}

	_, err := f.svc.Sign(ctx, "ag-1", models.PartyCustomer, "https://cdn.example/late.png")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Nil(t, f.agreements["ag-1"].CustomerSignature)
}

// completesOnSign completes the agreement just before the signature write.
type completesOnSign struct{ memAgreements }

func (c *completesOnSign) SetSignature(ctx context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error) {
	c.memAgreements[id].Status = models.AgreementCompleted
	return c.memAgreements.SetSignature(ctx, id, party, sig)
}
