// Package scancode renders the participant number as raster scan codes: a
// Code128 line code for laser and camera scanners at the check-in desk and a QR
// matrix code as the denser fallback.
package scancode

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

// Kind identifies the symbology of a rendered code.
type Kind string

const (
	KindLine   Kind = "code128"
	KindMatrix Kind = "qr"
)

// Code is a rendered scan code. Payload is the exact text the symbol decodes to.
type Code struct {
	Kind    Kind
	Payload string
	PNG     []byte
	Width   int
	Height  int
}

// Options sizes the rendered rasters in pixels.
type Options struct {
	LineWidth  int
	LineHeight int
	MatrixSize int
}

// Encoder renders payloads into PNG scan codes.
type Encoder struct {
	opts Options
}

// NewEncoder constructs an Encoder, applying defaults for zero sizes.
func NewEncoder(opts Options) *Encoder {
	if opts.LineWidth <= 0 {
		opts.LineWidth = 600
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = 120
	}
	if opts.MatrixSize <= 0 {
		opts.MatrixSize = 300
	}
	return &Encoder{opts: opts}
}

// Line renders payload as a Code128 barcode.
func (e *Encoder) Line(payload string) (*Code, error) {
	if payload == "" {
		return nil, fmt.Errorf("scancode: empty payload")
	}
	bc, err := code128.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode code128: %w", err)
	}
	return e.render(KindLine, bc, e.opts.LineWidth, e.opts.LineHeight)
}

// Matrix renders payload as a QR code with medium error correction.
func (e *Encoder) Matrix(payload string) (*Code, error) {
	if payload == "" {
		return nil, fmt.Errorf("scancode: empty payload")
	}
	bc, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return e.render(KindMatrix, bc, e.opts.MatrixSize, e.opts.MatrixSize)
}

func (e *Encoder) render(kind Kind, bc barcode.Barcode, width, height int) (*Code, error) {
	bounds := bc.Bounds()
	if width < bounds.Dx() {
		width = bounds.Dx()
	}
	if height < bounds.Dy() {
		height = bounds.Dy()
	}
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale %s: %w", kind, err)
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, scaled); err != nil {
		return nil, fmt.Errorf("encode %s png: %w", kind, err)
	}
	return &Code{
		Kind:    kind,
		Payload: scaled.Content(),
		PNG:     buf.Bytes(),
		Width:   width,
		Height:  height,
	}, nil
}
