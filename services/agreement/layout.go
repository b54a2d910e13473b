package agreement

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-pdf/fpdf"
)

// ErrInvalidGeometry is returned for tables that cannot be laid out. It is
// a programming error and aborts composition.
var ErrInvalidGeometry = errors.New("agreement: invalid table geometry")

// Point is a page position in millimetres from the top-left corner.
type Point struct {
	X, Y float64
}

// TableStyle holds the fixed metrics of a bordered table.
type TableStyle struct {
	Font            string
	FontSize        float64 // points
	LineHeight      float64
	Padding         float64 // per side horizontally, total vertically
	HeaderMinHeight float64
	MinRowHeight    float64
	HeaderFill      [3]int
}

// DefaultTableStyle is used for every table on the agreement.
var DefaultTableStyle = TableStyle{
	Font:            "Helvetica",
	FontSize:        9,
	LineHeight:      4.5,
	Padding:         2,
	HeaderMinHeight: 8,
	MinRowHeight:    7,
	HeaderFill:      [3]int{230, 232, 236},
}

// Table draws bordered, wrapped tables. When HeaderRow is set the first
// row is rendered bold on a filled background.
type Table struct {
	HeaderRow bool

	pdf   *fpdf.Fpdf
	style TableStyle
	tr    func(string) string
}

// NewTable binds a table renderer to pdf. tr converts UTF-8 text to the
// font encoding; nil leaves text untouched.
func NewTable(pdf *fpdf.Fpdf, style TableStyle, tr func(string) string) *Table {
	if tr == nil {
		tr = func(s string) string { return s }
	}
	return &Table{HeaderRow: true, pdf: pdf, style: style, tr: tr}
}

// Measure returns the height the rows would occupy.
func (t *Table) Measure(rows [][]string, widths []float64) (float64, error) {
	if err := t.check(Point{}, rows, widths); err != nil {
		return 0, err
	}
	total := 0.0
	for i, row := range rows {
		h, _ := t.layoutRow(row, widths, t.isHeader(i))
		total += h
	}
	return total, nil
}

// Render draws rows at origin and returns the Y coordinate just below the
// last row. Rows shorter than widths are padded with empty cells.
func (t *Table) Render(origin Point, rows [][]string, widths []float64) (float64, error) {
	if err := t.check(origin, rows, widths); err != nil {
		return origin.Y, err
	}
	s := t.style
	y := origin.Y
	for i, row := range rows {
		header := t.isHeader(i)
		h, cells := t.layoutRow(row, widths, header)

		x := origin.X
		for c, w := range widths {
			if header {
				t.pdf.SetFillColor(s.HeaderFill[0], s.HeaderFill[1], s.HeaderFill[2])
				t.pdf.Rect(x, y, w, h, "FD")
			} else {
				t.pdf.Rect(x, y, w, h, "D")
			}
			for l, line := range cells[c] {
				t.pdf.SetXY(x+s.Padding, y+s.Padding/2+float64(l)*s.LineHeight)
				t.pdf.CellFormat(w-2*s.Padding, s.LineHeight, line, "", 0, "LM", false, 0, "")
			}
			x += w
		}
		y += h
	}
	return y, nil
}

func (t *Table) isHeader(row int) bool {
	return t.HeaderRow && row == 0
}

// layoutRow sets the row font and returns the row height and wrapped
// lines of every cell.
func (t *Table) layoutRow(row []string, widths []float64, header bool) (float64, [][]string) {
	s := t.style
	style := ""
	minHeight := s.MinRowHeight
	if header {
		style = "B"
		minHeight = s.HeaderMinHeight
	}
	t.pdf.SetFont(s.Font, style, s.FontSize)

	cells := make([][]string, len(widths))
	maxLines := 1
	for c, w := range widths {
		text := ""
		if c < len(row) {
			text = t.tr(row[c])
		}
		cells[c] = wrapText(t.pdf, text, w-2*s.Padding)
		if len(cells[c]) > maxLines {
			maxLines = len(cells[c])
		}
	}
	return math.Max(minHeight, float64(maxLines)*s.LineHeight+s.Padding), cells
}

func (t *Table) check(origin Point, rows [][]string, widths []float64) error {
	if len(widths) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidGeometry)
	}
	for i, w := range widths {
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: column %d has width %v", ErrInvalidGeometry, i, w)
		}
	}
	if origin.X < 0 || origin.Y < 0 || math.IsNaN(origin.X) || math.IsNaN(origin.Y) {
		return fmt.Errorf("%w: origin (%v, %v)", ErrInvalidGeometry, origin.X, origin.Y)
	}
	for i, row := range rows {
		if len(row) > len(widths) {
			return fmt.Errorf("%w: row %d has %d cells for %d columns", ErrInvalidGeometry, i, len(row), len(widths))
		}
	}
	return nil
}

// wrapText breaks already-encoded text into lines no wider than width in
// the current font. Words longer than a line are split. The result always
// holds at least one line.
func wrapText(pdf *fpdf.Fpdf, text string, width float64) []string {
	text = strings.TrimRight(text, "\n")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pdf.GetStringWidth(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			for len(word) > 1 && pdf.GetStringWidth(word) > width {
				n := fitPrefix(pdf, word, width)
				lines = append(lines, word[:n])
				word = word[n:]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix returns the longest prefix length of s that fits width, at
// least one byte. Text is single-byte encoded at this point.
func fitPrefix(pdf *fpdf.Fpdf, s string, width float64) int {
	n := 1
	for n < len(s) && pdf.GetStringWidth(s[:n+1]) <= width {
		n++
	}
	return n
}
