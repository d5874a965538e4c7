package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders documents in memory.
type Generator interface {
	AppointmentSheet(data AppointmentData) ([]byte, error)
}

type AppointmentData struct {
	RequestID    string
	PostTitle    string
	Address      string
	Price        float64
	OwnerName    string
	OwnerEmail   string
	StudentName  string
	StudentEmail string
	At           time.Time
	SlotMinutes  int
	Message      string
	GeneratedAt  time.Time
}

type SheetGenerator struct {
	fontName string
}

func NewSheetGenerator() *SheetGenerator {
	return &SheetGenerator{fontName: "Helvetica"}
}

// sheet carries one document and the translator bound to it.
type sheet struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (g *SheetGenerator) AppointmentSheet(data AppointmentData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Appointment "+data.RequestID, true)
	pdf.SetAuthor("UniStay", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	// core fonts are cp1252; this maps UTF-8 input onto it
	doc := &sheet{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "Visit appointment", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, doc.tr("Request "+data.RequestID), "", 1, "C", false, 0, "")
	g.hr(doc)

	g.sectionTitle(doc, "Listing")
	g.kvLine(doc, "Title", data.PostTitle)
	g.kvLine(doc, "Address", data.Address)
	g.kvLine(doc, "Price", fmt.Sprintf("%.2f", data.Price))
	g.hr(doc)

	g.sectionTitle(doc, "Parties")
	g.kvLine(doc, "Owner", fmt.Sprintf("%s <%s>", data.OwnerName, data.OwnerEmail))
	g.kvLine(doc, "Student", fmt.Sprintf("%s <%s>", data.StudentName, data.StudentEmail))
	g.hr(doc)

	g.sectionTitle(doc, "When")
	g.kvLine(doc, "Date", data.At.UTC().Format("Monday, 02 January 2006"))
	g.kvLine(doc, "Time (UTC)", fmt.Sprintf("%s - %s",
		data.At.UTC().Format("15:04"),
		data.At.UTC().Add(time.Duration(data.SlotMinutes)*time.Minute).Format("15:04")))

	if data.Message != "" {
		g.hr(doc)
		g.sectionTitle(doc, "Message from the owner")
		pdf.MultiCell(0, 6, doc.tr(data.Message), "", "L", false)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "I", 8)
		pdf.CellFormat(0, 10, "Generated "+data.GeneratedAt.UTC().Format(time.RFC1123), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render appointment sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *SheetGenerator) sectionTitle(doc *sheet, s string) {
	doc.pdf.SetFont(g.fontName, "B", 12)
	doc.pdf.CellFormat(0, 8, doc.tr(s), "", 1, "L", false, 0, "")
	doc.pdf.SetFont(g.fontName, "", 11)
}

func (g *SheetGenerator) kvLine(doc *sheet, key, val string) {
	doc.pdf.SetFont(g.fontName, "B", 11)
	doc.pdf.CellFormat(35, 6, doc.tr(key+":"), "", 0, "L", false, 0, "")
	doc.pdf.SetFont(g.fontName, "", 11)
	doc.pdf.CellFormat(0, 6, doc.tr(val), "", 1, "L", false, 0, "")
}

func (g *SheetGenerator) hr(doc *sheet) {
	y := doc.pdf.GetY() + 2
	doc.pdf.SetLineWidth(0.2)
	doc.pdf.Line(20, y, 190, y)
	doc.pdf.SetY(y + 3)
}
