// Package labels renders the printable identifier artifacts for items: a
// QR code deep-linking to the item and a Code 128 strip of the barcode
// identifier. Artifacts live at addressable paths under a data directory
// so the UI and label printers can fetch them by item id.
package labels

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/draw"
)

// QRSize is the edge length of generated QR images in pixels.
const QRSize = 256

// BarcodeWidth and BarcodeHeight are the Code 128 strip dimensions.
const (
	BarcodeWidth  = 400
	BarcodeHeight = 80
)

// Generator produces label artifacts for an identifier.
type Generator interface {
	// Ensure creates the QR and barcode artifacts for the item if they are
	// missing, or unconditionally when regenerate is set.
	Ensure(itemID int64, barcodeText string, regenerate bool) error
	// QRPath and BarcodePath return the artifact locations.
	QRPath(itemID int64) string
	BarcodePath(itemID int64) string
}

// FileGenerator writes PNG artifacts into a data directory.
type FileGenerator struct {
	Dir     string // artifacts go to Dir/labels
	BaseURL string // deep-link base, passed in explicitly
}

// NewFileGenerator returns a generator rooted at dir.
func NewFileGenerator(dir, baseURL string) *FileGenerator {
	return &FileGenerator{Dir: dir, BaseURL: baseURL}
}

func (g *FileGenerator) QRPath(itemID int64) string {
	return filepath.Join(g.Dir, "labels", fmt.Sprintf("qr_%d.png", itemID))
}

func (g *FileGenerator) BarcodePath(itemID int64) string {
	return filepath.Join(g.Dir, "labels", fmt.Sprintf("barcode_%d.png", itemID))
}

// Ensure renders both artifacts. Existing files are kept unless
// regenerate is set.
func (g *FileGenerator) Ensure(itemID int64, barcodeText string, regenerate bool) error {
	if err := os.MkdirAll(filepath.Join(g.Dir, "labels"), 0o755); err != nil {
		return fmt.Errorf("creating label directory: %w", err)
	}

	qrPath := g.QRPath(itemID)
	if regenerate || !exists(qrPath) {
		deepLink := fmt.Sprintf("%s/items/%d", g.BaseURL, itemID)
		code, err := qr.Encode(deepLink, qr.M, qr.Auto)
		if err != nil {
			return fmt.Errorf("encoding QR code: %w", err)
		}
		if err := writeScaled(qrPath, code, QRSize, QRSize); err != nil {
			return err
		}
	}

	barcodePath := g.BarcodePath(itemID)
	if regenerate || !exists(barcodePath) {
		code, err := code128.Encode(barcodeText)
		if err != nil {
			return fmt.Errorf("encoding barcode: %w", err)
		}
		if err := writeScaled(barcodePath, code, BarcodeWidth, BarcodeHeight); err != nil {
			return err
		}
	}

	return nil
}

// writeScaled scales the code to the label dimensions and writes a PNG.
// Nearest-neighbor keeps the module edges crisp.
func writeScaled(path string, code barcode.Barcode, w, h int) error {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), code, code.Bounds(), draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating label file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, dst); err != nil {
		return fmt.Errorf("encoding label PNG: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Noop is a Generator that does nothing, for tests and disabled setups.
type Noop struct{}

func (Noop) Ensure(int64, string, bool) error { return nil }
func (Noop) QRPath(int64) string              { return "" }
func (Noop) BarcodePath(int64) string         { return "" }
