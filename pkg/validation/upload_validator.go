package validation

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
)

// UploadValidator checks uploaded candidate files by name and content
type UploadValidator struct {
	allowedExtensions []string
	allowedMIMETypes  []string
}

// NewUploadValidator accepts PNG and JPEG uploads
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{
		allowedExtensions: []string{".png", ".jpg", ".jpeg"},
		allowedMIMETypes:  []string{"image/png", "image/jpeg"},
	}
}

// ValidateFilename rejects empty names and extensions outside the allowed set
func (v *UploadValidator) ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewValidationError("No selected file", nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(v.allowedExtensions, ext) {
		return apperrors.NewValidationError("Invalid file type. Allowed types are png, jpg, jpeg", nil)
	}
	return nil
}

// ValidateContent sniffs the upload and rejects anything that is not an allowed image
func (v *UploadValidator) ValidateContent(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError("Uploaded file is empty", nil)
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range v.allowedMIMETypes {
		if mtype.Is(allowed) {
			return mtype.String(), nil
		}
	}
	return mtype.String(), apperrors.NewValidationError("File content is not a PNG or JPEG image", nil)
}
