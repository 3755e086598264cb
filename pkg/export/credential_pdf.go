package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // photo decoding
	_ "image/png"  // photo and scan code decoding
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// MissingNumberText is printed where codes would go when no participant number exists yet.
const MissingNumberText = "nomor peserta belum tersedia"

// CardField is one labelled line on a credential.
type CardField struct {
	Label string
	Value string
}

// Card describes a printable credential (registration card or exam card).
type Card struct {
	Organisation      string
	Title             string
	ParticipantNumber string
	Fields            []CardField
	Notes             []string
	Photo             []byte
	LineCode          []byte
	MatrixCode        []byte
}

// CredentialRenderer lays out credentials as single page PDFs. It never fails
// because of a missing or broken asset; those are replaced by placeholder boxes.
type CredentialRenderer struct{}

// NewCredentialRenderer constructs a CredentialRenderer.
func NewCredentialRenderer() *CredentialRenderer {
	return &CredentialRenderer{}
}

// Render produces the PDF bytes for card.
func (r *CredentialRenderer) Render(card Card) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	pdf.SetDrawColor(40, 40, 40)
	pdf.Rect(10, 10, 190, 150, "D")

	pdf.SetXY(15, 15)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(130, 6, tr(strings.ToUpper(card.Organisation)), "", 1, "L", false, 0, "")
	pdf.SetX(15)
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(130, 9, tr(strings.ToUpper(card.Title)), "", 1, "L", false, 0, "")
	pdf.Line(15, 32, 195, 32)

	r.photo(pdf, card.Photo, 155, 36, 35, 45)

	pdf.SetXY(15, 36)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(45, 6, "Nomor Peserta", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	number := card.ParticipantNumber
	if number == "" {
		pdf.SetFont("Arial", "I", 10)
		number = MissingNumberText
	}
	pdf.CellFormat(90, 6, tr(number), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, field := range card.Fields {
		pdf.SetX(15)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(45, 6, tr(field.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 9)
		pdf.MultiCell(90, 6, tr(": "+field.Value), "", "L", false)
	}

	codeTop := 118.0
	if card.ParticipantNumber == "" {
		placeholder(pdf, tr, 15, codeTop, 110, 24, MissingNumberText)
		placeholder(pdf, tr, 155, codeTop-12, 35, 35, MissingNumberText)
	} else {
		r.image(pdf, "line-code", card.LineCode, 15, codeTop, 110, 24, "kode batang tidak tersedia")
		r.image(pdf, "matrix-code", card.MatrixCode, 155, codeTop-12, 35, 35, "kode QR tidak tersedia")
	}

	if len(card.Notes) > 0 {
		pdf.SetXY(15, 146)
		pdf.SetFont("Arial", "I", 8)
		for _, note := range card.Notes {
			pdf.SetX(15)
			pdf.MultiCell(180, 4, tr(note), "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render credential pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *CredentialRenderer) photo(pdf *gofpdf.Fpdf, data []byte, x, y, w, h float64) {
	r.image(pdf, "photo", data, x, y, w, h, "FOTO 3x4")
}

// image draws data as an image or, when it cannot be decoded, a labelled placeholder box.
func (r *CredentialRenderer) image(pdf *gofpdf.Fpdf, name string, data []byte, x, y, w, h float64, fallback string) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	imageType := detectImageType(data)
	if imageType == "" {
		placeholder(pdf, tr, x, y, w, h, fallback)
		return
	}
	opts := gofpdf.ImageOptions{ImageType: imageType}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if !pdf.Ok() || info == nil {
		pdf.ClearError()
		placeholder(pdf, tr, x, y, w, h, fallback)
		return
	}
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func placeholder(pdf *gofpdf.Fpdf, tr func(string) string, x, y, w, h float64, text string) {
	pdf.SetDrawColor(150, 150, 150)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetDrawColor(40, 40, 40)
	pdf.SetFont("Arial", "I", 7)
	pdf.SetXY(x, y+h/2-2)
	pdf.CellFormat(w, 4, tr(text), "", 0, "C", false, 0, "")
}

func detectImageType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	switch format {
	case "jpeg":
		return "JPG"
	case "png":
		return "PNG"
	default:
		return ""
	}
}
