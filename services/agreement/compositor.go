// Package agreement composes and stores signed rental agreements.
package agreement

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"rentline/models"
	"rentline/services/compliance"
	"rentline/services/imaging"
	"rentline/utils"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	margin        = 15.0
	contentWidth  = pageWidth - 2*margin
	contentBottom = pageHeight - margin - 7
	lineHeight    = 5.0

	logoHeight   = 18.0
	logoMaxWidth = 60.0

	signatureHeaderHeight = 8.0
	signatureCellHeight   = 40.0
	signatureImageWidth   = 50.0
	signatureImageHeight  = 20.0
	signatureImageInset   = 4.0
	signatureDateInset    = 4.0

	clauseIndent  = 8.0
	clauseSpacing = 2.0
)

// ContentTypePDF is the MIME type of composed documents.
const ContentTypePDF = "application/pdf"

// ImageResolver resolves image references for placement.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (*imaging.ResolvedImage, error)
}

// Company is the lessor identity printed in the header.
type Company struct {
	Name           string
	Address        string
	Phone          string
	Email          string
	LogoCandidates []string
}

// RentalWindow is the hire period.
type RentalWindow struct {
	PickupAt       time.Time
	ReturnAt       time.Time
	PickupLocation string
	ReturnLocation string
}

// Signatory is one signing party. An empty Ref means not yet signed.
type Signatory struct {
	Name     string
	Ref      string
	SignedAt *time.Time
}

// Facts is everything that appears on an agreement.
type Facts struct {
	Number    string
	Date      time.Time
	Company   Company
	Customer  models.Customer
	Vehicle   models.Vehicle
	Rental    RentalWindow
	Insurance string
	Clauses   []string

	CustomerSignatory *Signatory
	AdminSignatory    *Signatory
}

// Image slots, used for placements and fallback metrics.
const (
	SlotLogo              = "logo"
	SlotCustomerSignature = "customer_signature"
	SlotAdminSignature    = "admin_signature"
)

// PlacementMode says how an image slot was drawn.
type PlacementMode string

const (
	PlacedImage PlacementMode = "image"
	PlacedRule  PlacementMode = "rule"
	PlacedText  PlacementMode = "text"
)

// Placement records where an image slot ended up.
type Placement struct {
	Slot string
	Mode PlacementMode
	Page int
	X, Y float64
	W, H float64
}

// ComposedDocument is a finished agreement.
type ComposedDocument struct {
	Data        []byte
	Pages       int
	ContentType string
	// Fallbacks lists the image slots that could not be resolved or placed.
	Fallbacks  []string
	Placements []Placement
}

// Placement returns the placement for slot.
func (d *ComposedDocument) Placement(slot string) (Placement, bool) {
	for _, p := range d.Placements {
		if p.Slot == slot {
			return p, true
		}
	}
	return Placement{}, false
}

// Compositor renders agreements. It holds no per-document state and may be
// shared between goroutines.
type Compositor struct {
	Resolver ImageResolver
	// FallbackLogos are tried after the company's own candidates.
	FallbackLogos []string
	Compress      bool
	Logger        *zap.Logger
}

// NewCompositor returns a compositor with compression enabled.
func NewCompositor(resolver ImageResolver, fallbackLogos []string, logger *zap.Logger) *Compositor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compositor{Resolver: resolver, FallbackLogos: fallbackLogos, Compress: true, Logger: logger}
}

// placeable is an image already normalized for the PDF writer.
type placeable struct {
	data   []byte
	format string
	width  int
	height int
}

type resolvedImages struct {
	logo     *placeable
	customer *placeable
	admin    *placeable
}

// Compose renders facts into a PDF. Image failures degrade the output and
// are reported in Fallbacks; only layout and writer errors are returned.
func (c *Compositor) Compose(ctx context.Context, facts Facts) (*ComposedDocument, error) {
	start := time.Now()
	imgs := c.resolveImages(ctx, facts)

	pdf := newWriter(facts, c.Compress)
	w := &pageWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		logger: c.logger(),
		y:      margin,
	}
	w.table = NewTable(pdf, DefaultTableStyle, w.tr)

	footer := fmt.Sprintf("Agreement %s | Created %s", facts.Number, formatDate(facts.Date))
	pdf.SetFooterFunc(func() {
		pdf.SetY(-(margin - 3))
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 4, w.tr(footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	if imgs.logo == nil && (len(facts.Company.LogoCandidates) > 0 || len(c.FallbackLogos) > 0) {
		w.fallback(SlotLogo)
	}
	w.header(facts, imgs.logo)
	if err := w.detailSections(facts); err != nil {
		return nil, err
	}
	w.paragraph("Insurance Declaration", facts.Insurance)
	w.clauses(facts.Clauses)
	if err := w.signatures(facts, imgs); err != nil {
		return nil, err
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("agreement.Compose: pdf writer: %w", err)
	}
	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("agreement.Compose: failed to write pdf: %w", err)
	}

	utils.AgreementsComposed.Inc()
	for _, slot := range w.fallbacks {
		utils.AgreementImageFallbacks.WithLabelValues(slot).Inc()
	}
	utils.AgreementComposeSeconds.Observe(time.Since(start).Seconds())

	c.logger().Info("agreement composed",
		zap.String("number", facts.Number),
		zap.Int("pages", pages),
		zap.Strings("fallbacks", w.fallbacks))

	return &ComposedDocument{
		Data:        buf.Bytes(),
		Pages:       pages,
		ContentType: ContentTypePDF,
		Fallbacks:   w.fallbacks,
		Placements:  w.placements,
	}, nil
}

func newWriter(facts Facts, compress bool) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(0)
	pdf.SetCompression(compress)
	pdf.SetCatalogSort(true)

	stamp := facts.Date
	if stamp.IsZero() {
		stamp = time.Unix(0, 0).UTC()
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle("Vehicle Rental Agreement "+facts.Number, true)
	pdf.SetAuthor(facts.Company.Name, true)
	pdf.SetCreator("rentline", true)
	return pdf
}

// resolveImages fetches the logo candidates and both signatures at once.
// Every failure is logged and leaves its slot empty.
func (c *Compositor) resolveImages(ctx context.Context, facts Facts) resolvedImages {
	var out resolvedImages
	if c.Resolver == nil {
		return out
	}

	logoRefs := dedupe(append(append([]string{}, facts.Company.LogoCandidates...), c.FallbackLogos...))
	logos := make([]*placeable, len(logoRefs))

	var g errgroup.Group
	g.SetLimit(4)
	for i, ref := range logoRefs {
		g.Go(func() error {
			logos[i] = c.prepare(ctx, SlotLogo, ref)
			return nil
		})
	}
	if s := facts.CustomerSignatory; s != nil && strings.TrimSpace(s.Ref) != "" {
		g.Go(func() error {
			out.customer = c.prepare(ctx, SlotCustomerSignature, s.Ref)
			return nil
		})
	}
	if s := facts.AdminSignatory; s != nil && strings.TrimSpace(s.Ref) != "" {
		g.Go(func() error {
			out.admin = c.prepare(ctx, SlotAdminSignature, s.Ref)
			return nil
		})
	}
	_ = g.Wait()

	for _, l := range logos {
		if l != nil {
			out.logo = l
			break
		}
	}
	return out
}

func (c *Compositor) prepare(ctx context.Context, slot, ref string) *placeable {
	img, err := c.Resolver.Resolve(ctx, ref)
	if err != nil {
		c.logger().Warn("agreement image unavailable", zap.String("slot", slot), zap.Error(err))
		return nil
	}
	data, format, err := img.Normalized()
	if err != nil {
		c.logger().Warn("agreement image not placeable", zap.String("slot", slot),
			zap.String("ref", imaging.Redact(ref)), zap.Error(err))
		return nil
	}
	return &placeable{data: data, format: format, width: img.Width, height: img.Height}
}

func (c *Compositor) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func dedupe(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// pageWriter tracks the cursor of one document.
type pageWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	table  *Table
	logger *zap.Logger
	y      float64

	fallbacks  []string
	placements []Placement
}

// ensureSpace starts a new page when h does not fit below the cursor.
func (w *pageWriter) ensureSpace(h float64) {
	if w.y+h > contentBottom && w.y > margin {
		w.pdf.AddPage()
		w.y = margin
	}
}

func (w *pageWriter) fallback(slot string) {
	w.fallbacks = append(w.fallbacks, slot)
}

func (w *pageWriter) place(p Placement) {
	p.Page = w.pdf.PageNo()
	w.placements = append(w.placements, p)
}

// drawImage places img, reporting false when the writer rejects it. The
// writer error is cleared so the rest of the document still renders.
func (w *pageWriter) drawImage(name string, img *placeable, x, y, width, height float64) bool {
	if w.pdf.Err() {
		return false
	}
	opts := fpdf.ImageOptions{ImageType: img.format}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
	if err := w.pdf.Error(); err != nil {
		w.logger.Warn("pdf writer rejected image", zap.String("image", name), zap.Error(err))
		w.pdf.ClearError()
		return false
	}
	w.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	if err := w.pdf.Error(); err != nil {
		w.logger.Warn("pdf writer failed to place image", zap.String("image", name), zap.Error(err))
		w.pdf.ClearError()
		return false
	}
	return true
}

func (w *pageWriter) text(x, width, h float64, s, align string) {
	w.pdf.SetXY(x, w.y)
	w.pdf.CellFormat(width, h, w.tr(s), "", 0, align, false, 0, "")
	w.y += h
}

// header draws the logo, when there is one, and the company identity.
func (w *pageWriter) header(facts Facts, logo *placeable) {
	top := w.y
	bottom := top
	align := "L"

	if logo != nil && logo.width > 0 && logo.height > 0 {
		h := logoHeight
		lw := h * float64(logo.width) / float64(logo.height)
		if lw > logoMaxWidth {
			lw = logoMaxWidth
			h = lw * float64(logo.height) / float64(logo.width)
		}
		if w.drawImage(SlotLogo, logo, margin, top, lw, h) {
			w.place(Placement{Slot: SlotLogo, Mode: PlacedImage, X: margin, Y: top, W: lw, H: h})
			bottom = top + h
			align = "R"
		} else {
			w.fallback(SlotLogo)
		}
	}
	if align == "L" {
		w.place(Placement{Slot: SlotLogo, Mode: PlacedText, X: margin, Y: top, W: contentWidth})
	}

	co := facts.Company
	w.pdf.SetFont("Helvetica", "B", 14)
	w.text(margin, contentWidth, 7, co.Name, align)
	w.pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{co.Address, phoneLine(co.Phone), emailLine(co.Email)} {
		if strings.TrimSpace(line) != "" {
			w.text(margin, contentWidth, 4.5, line, align)
		}
	}
	w.y = math.Max(w.y, bottom) + 4
	w.pdf.Line(margin, w.y, pageWidth-margin, w.y)
	w.y += 6

	w.pdf.SetFont("Helvetica", "B", 16)
	w.text(margin, contentWidth, 8, "Vehicle Rental Agreement", "C")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.SetXY(margin, w.y)
	w.pdf.CellFormat(contentWidth/2, lineHeight, w.tr("Agreement No: "+facts.Number), "", 0, "L", false, 0, "")
	w.pdf.CellFormat(contentWidth/2, lineHeight, w.tr("Date: "+formatDate(facts.Date)), "", 0, "R", false, 0, "")
	w.y += lineHeight + 4
}

func phoneLine(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return "Tel: " + p
}

func emailLine(e string) string {
	if strings.TrimSpace(e) == "" {
		return ""
	}
	return "Email: " + e
}

func (w *pageWriter) heading(title string) {
	w.pdf.SetFont("Helvetica", "B", 11)
	w.text(margin, contentWidth, 7, title, "L")
	w.y += 1
}

// detailSections renders the customer, vehicle and rental tables.
func (w *pageWriter) detailSections(facts Facts) error {
	cu, v, r := facts.Customer, facts.Vehicle, facts.Rental
	sections := []struct {
		title string
		rows  [][]string
	}{
		{"Customer Details", [][]string{
			{"Field", "Value"},
			{"Full name", cu.FullName},
			{"Email", cu.Email},
			{"Phone", cu.Phone},
			{"Address", cu.Address},
			{"Date of birth", formatDateString(cu.DateOfBirth)},
			{"Driving licence number", cu.LicenseNumber},
		}},
		{"Vehicle Details", [][]string{
			{"Field", "Value"},
			{"Make and model", strings.TrimSpace(v.Make + " " + v.Model)},
			{"Registration", v.Registration},
			{"Year", yearString(v.Year)},
			{"Colour", v.Colour},
			{"VIN", v.VIN},
			{"Fuel type", v.FuelType},
		}},
		{"Rental Period", [][]string{
			{"Field", "Value"},
			{"Pickup", formatDateTime(r.PickupAt)},
			{"Pickup location", r.PickupLocation},
			{"Return", formatDateTime(r.ReturnAt)},
			{"Return location", r.ReturnLocation},
			{"Duration", rentalDays(r)},
		}},
	}

	widths := []float64{55, contentWidth - 55}
	for _, s := range sections {
		h, err := w.table.Measure(s.rows, widths)
		if err != nil {
			return fmt.Errorf("agreement.Compose: %s: %w", s.title, err)
		}
		w.ensureSpace(h + 8)
		w.heading(s.title)
		y, err := w.table.Render(Point{X: margin, Y: w.y}, s.rows, widths)
		if err != nil {
			return fmt.Errorf("agreement.Compose: %s: %w", s.title, err)
		}
		w.y = y + 6
	}
	return nil
}

// paragraph writes a titled block of wrapped text, breaking pages between
// lines.
func (w *pageWriter) paragraph(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	w.ensureSpace(8 + 2*lineHeight)
	w.heading(title)
	w.pdf.SetFont("Helvetica", "", 9)
	for _, line := range wrapText(w.pdf, w.tr(body), contentWidth) {
		w.ensureSpace(lineHeight)
		w.pdf.SetXY(margin, w.y)
		w.pdf.CellFormat(contentWidth, lineHeight, line, "", 0, "L", false, 0, "")
		w.y += lineHeight
	}
	w.y += 6
}

// clauses writes the numbered terms. A clause longer than the remaining
// space continues on the next page.
func (w *pageWriter) clauses(clauses []string) {
	if len(clauses) == 0 {
		return
	}
	w.ensureSpace(8 + 2*lineHeight)
	w.heading("Terms and Conditions")
	w.pdf.SetFont("Helvetica", "", 9)
	for i, clause := range clauses {
		lines := wrapText(w.pdf, w.tr(clause), contentWidth-clauseIndent)
		for j, line := range lines {
			w.ensureSpace(lineHeight)
			if j == 0 {
				w.pdf.SetXY(margin, w.y)
				w.pdf.CellFormat(clauseIndent, lineHeight, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
			}
			w.pdf.SetXY(margin+clauseIndent, w.y)
			w.pdf.CellFormat(contentWidth-clauseIndent, lineHeight, line, "", 0, "L", false, 0, "")
			w.y += lineHeight
		}
		w.y += clauseSpacing
	}
	w.y += 4
}

// signatures draws the two-column signature block. Images use a fixed
// 50x20 mm box whatever their native aspect ratio.
func (w *pageWriter) signatures(facts Facts, imgs resolvedImages) error {
	half := contentWidth / 2
	widths := []float64{half, half}
	customer := signatoryOr(facts.CustomerSignatory, facts.Customer.FullName)
	admin := signatoryOr(facts.AdminSignatory, "")

	rows := [][]string{{"Customer: " + customer.Name, "For the Company: " + admin.Name}}
	header, err := w.table.Measure(rows, widths)
	if err != nil {
		return fmt.Errorf("agreement.Compose: signature header: %w", err)
	}
	w.ensureSpace(8 + math.Max(header, signatureHeaderHeight) + signatureCellHeight)
	w.heading("Signatures")

	y, err := w.table.Render(Point{X: margin, Y: w.y}, rows, widths)
	if err != nil {
		return fmt.Errorf("agreement.Compose: signature header: %w", err)
	}
	w.y = y

	w.signatureCell(SlotCustomerSignature, margin, half, customer, imgs.customer)
	w.signatureCell(SlotAdminSignature, margin+half, half, admin, imgs.admin)
	w.y += signatureCellHeight + 4
	return nil
}

func (w *pageWriter) signatureCell(slot string, x, width float64, s Signatory, img *placeable) {
	top := w.y
	w.pdf.Rect(x, top, width, signatureCellHeight, "D")

	placed := false
	if img != nil {
		ix := x + (width-signatureImageWidth)/2
		iy := top + signatureImageInset
		if w.drawImage(slot, img, ix, iy, signatureImageWidth, signatureImageHeight) {
			w.place(Placement{Slot: slot, Mode: PlacedImage, X: ix, Y: iy, W: signatureImageWidth, H: signatureImageHeight})
			placed = true
		}
	}
	if !placed {
		if strings.TrimSpace(s.Ref) != "" {
			w.fallback(slot)
		}
		mid := top + signatureCellHeight/2
		w.pdf.Line(x+10, mid, x+width-10, mid)
		w.place(Placement{Slot: slot, Mode: PlacedRule, X: x + 10, Y: mid, W: width - 20})
	}

	label := "Date: "
	if s.SignedAt != nil && !s.SignedAt.IsZero() {
		label += formatDate(*s.SignedAt)
	} else {
		label += "____________"
	}
	w.pdf.SetFont("Helvetica", "", 9)
	w.pdf.SetXY(x+4, top+signatureCellHeight-signatureDateInset-lineHeight)
	w.pdf.CellFormat(width-8, lineHeight, w.tr(label), "", 0, "LB", false, 0, "")
}

func signatoryOr(s *Signatory, name string) Signatory {
	if s == nil {
		return Signatory{Name: name}
	}
	out := *s
	if out.Name == "" {
		out.Name = name
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// formatDateString reformats a stored date, leaving unparseable input as is.
func formatDateString(s string) string {
	if t, ok := compliance.ParseDate(s); ok {
		return formatDate(t)
	}
	return s
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprint(y)
}

func rentalDays(r RentalWindow) string {
	if r.PickupAt.IsZero() || !r.ReturnAt.After(r.PickupAt) {
		return ""
	}
	days := int(math.Ceil(r.ReturnAt.Sub(r.PickupAt).Hours() / 24))
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
