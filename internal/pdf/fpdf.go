package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// FPDFCanvas draws on an fpdf document with the core Helvetica font.
type FPDFCanvas struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func NewFPDFCanvas() *FPDFCanvas {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, Margin)
	doc.SetTitle(Title, true)
	doc.SetCreator("ai-fitness-planner", true)
	return &FPDFCanvas{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func (c *FPDFCanvas) AddPage() { c.doc.AddPage() }

func (c *FPDFCanvas) SetFont(style Style, size float64) {
	c.doc.SetFont("Helvetica", string(style), size)
}

func (c *FPDFCanvas) Text(x, y float64, s string) {
	c.doc.Text(x, y, c.encode(s))
}

func (c *FPDFCanvas) StringWidth(s string) float64 {
	return c.doc.GetStringWidth(c.encode(s))
}

// Output writes the finished document.
func (c *FPDFCanvas) Output(w io.Writer) error {
	if err := c.doc.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	if err := c.doc.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// encode converts s to the cp1252 encoding of the core fonts. Runes the
// encoding cannot represent are dropped.
func (c *FPDFCanvas) encode(s string) string {
	return c.tr(strings.Map(func(r rune) rune {
		if r <= 0xFF || cp1252Extras[r] {
			return r
		}
		return -1
	}, s))
}

var cp1252Extras = map[rune]bool{
	'€': true, '‚': true, '„': true, '…': true, '‘': true, '’': true, '“': true, '”': true,
	'•': true, '–': true, '—': true, '™': true, 'Œ': true, 'œ': true, 'Š': true, 'š': true,
}

// Write lays out plans and writes the PDF to w.
func Write(w io.Writer, plans Plans) error {
	canvas := NewFPDFCanvas()
	Layout(canvas, plans)
	return canvas.Output(w)
}

// Export returns the PDF document for plans.
func Export(plans Plans) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, plans); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
