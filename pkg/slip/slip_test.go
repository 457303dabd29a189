package slip

import (
	"image/color"
	"os"
	"testing"

	"github.com/disintegration/imaging"
)

// Requires a tesseract install; opt in with SLIP_OCR_TEST=1.
func TestExtractAmountBlankImage(t *testing.T) {
	if os.Getenv("SLIP_OCR_TEST") != "1" {
		t.Skip("set SLIP_OCR_TEST=1 to run OCR tests")
	}
	img := imaging.New(400, 200, color.NRGBA{255, 255, 255, 255})
	f, err := os.CreateTemp("", "blank-*.png")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	_ = f.Close()
	defer os.Remove(f.Name())
	if err := imaging.Save(img, f.Name()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := ExtractAmount(f.Name()); err != ErrNoAmount {
		t.Fatalf("expected ErrNoAmount got %v", err)
	}
}
