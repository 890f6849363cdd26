package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/internal/entity"
)

// AllowedExtensions lists the spreadsheet formats the loader understands.
var AllowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

const maxQuestionLen = 2000

// Validator validates dataset uploads and chat turn requests
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateDatasetUpload validates a single spreadsheet upload
func (v *Validator) ValidateDatasetUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}
	return v.ValidateDatasetFile(fh.Filename, fh.Size)
}

// ValidateDatasetFile validates name and size of a spreadsheet coming
// from any transport
func (v *Validator) ValidateDatasetFile(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s (allowed: xlsx, xls, csv)", entity.ErrInvalidExtension, ext)
	}

	if size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, filename, size, v.cfg.MaxFileSize)
	}

	return nil
}

// ValidateTurn validates a chat message request
func (v *Validator) ValidateTurn(req *entity.TurnRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text", entity.ErrMissingField)
	}
	if utf8.RuneCountInString(req.Text) > maxQuestionLen {
		return fmt.Errorf("%w: text exceeds %d characters", entity.ErrInvalidParameter, maxQuestionLen)
	}
	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
