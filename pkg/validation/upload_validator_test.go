package validation

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
)

func encodedImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}
	img.Set(0, 0, color.Gray{Y: 255})

	var buf bytes.Buffer
	var err error
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestValidateFilename(t *testing.T) {
	validator := NewUploadValidator()

	valid := []string{"note.png", "note.jpg", "NOTE.JPEG", "scan.2000.jpg"}
	for _, name := range valid {
		if err := validator.ValidateFilename(name); err != nil {
			t.Errorf("Expected %q to be accepted, got: %v", name, err)
		}
	}

	invalid := []string{"", "  ", "note.gif", "note", "note.png.exe"}
	for _, name := range invalid {
		err := validator.ValidateFilename(name)
		if err == nil {
			t.Errorf("Expected %q to be rejected", name)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %q, got: %v", name, err)
		}
	}
}

func TestValidateContent(t *testing.T) {
	validator := NewUploadValidator()

	mtype, err := validator.ValidateContent(encodedImage(t, "png"))
	if err != nil || mtype != "image/png" {
		t.Errorf("Expected PNG to be accepted, got %q, %v", mtype, err)
	}

	mtype, err = validator.ValidateContent(encodedImage(t, "jpeg"))
	if err != nil || mtype != "image/jpeg" {
		t.Errorf("Expected JPEG to be accepted, got %q, %v", mtype, err)
	}

	if _, err := validator.ValidateContent([]byte("just some text, not an image")); err == nil {
		t.Error("Expected text content to be rejected")
	}

	if _, err := validator.ValidateContent(nil); err == nil {
		t.Error("Expected empty content to be rejected")
	}
}
