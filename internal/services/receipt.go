package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultReceiptMaxBytes is the largest receipt accepted for upload
const DefaultReceiptMaxBytes = 8 << 20

var (
	ErrReceiptEmpty    = errors.New("receipt file is empty")
	ErrReceiptTooLarge = errors.New("receipt file is too large")
	ErrReceiptType     = errors.New("receipt must be a JPEG, PNG or PDF file")
	ErrReceiptCorrupt  = errors.New("receipt image could not be read")
)

var receiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// ReceiptFile is a receipt that passed validation
type ReceiptFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Reader returns a reader over the receipt bytes.
func (f *ReceiptFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// ReceiptValidator checks uploads before they are forwarded to the backend
type ReceiptValidator struct {
	maxBytes int64
}

// NewReceiptValidator creates a validator; maxBytes <= 0 uses the default
func NewReceiptValidator(maxBytes int64) *ReceiptValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultReceiptMaxBytes
	}
	return &ReceiptValidator{maxBytes: maxBytes}
}

// MaxBytes returns the size limit.
func (v *ReceiptValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate reads the upload and checks its size and detected content type.
func (v *ReceiptValidator) Validate(r io.Reader, filename string) (*ReceiptFile, error) {
	// Read one byte past the limit to detect oversized files
	data, err := io.ReadAll(io.LimitReader(r, v.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrReceiptEmpty
	}
	if int64(len(data)) > v.maxBytes {
		return nil, ErrReceiptTooLarge
	}

	// The declared extension is ignored; only the content decides
	detected := mimetype.Detect(data).String()
	contentType := strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])
	ext, ok := receiptTypes[contentType]
	if !ok {
		return nil, ErrReceiptType
	}

	file := &ReceiptFile{
		Filename:    receiptFilename(filename, ext),
		ContentType: contentType,
		Data:        data,
	}

	if contentType != "application/pdf" {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, ErrReceiptCorrupt
		}
		bounds := img.Bounds()
		file.Width = bounds.Dx()
		file.Height = bounds.Dy()
	}

	return file, nil
}

// receiptFilename keeps the base name and makes the extension match the content.
func receiptFilename(filename, ext string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "receipt"
	}
	current := strings.ToLower(filepath.Ext(base))
	if current == ext || (ext == ".jpg" && current == ".jpeg") {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
