package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func TestReceiptValidator_Accepts(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		filename    string
		contentType string
		outName     string
		width       int
	}{
		{name: "png", data: encodedImage(t, "png"), filename: "transfer.png", contentType: "image/png", outName: "transfer.png", width: 4},
		{name: "jpeg with jpeg extension", data: encodedImage(t, "jpeg"), filename: "scan.JPEG", contentType: "image/jpeg", outName: "scan.JPEG", width: 4},
		{name: "jpeg renamed", data: encodedImage(t, "jpeg"), filename: "scan.png", contentType: "image/jpeg", outName: "scan.jpg", width: 4},
		{name: "pdf", data: []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), filename: `C:\Users\me\bank.pdf`, contentType: "application/pdf", outName: "bank.pdf"},
		{name: "no filename", data: []byte("%PDF-1.7\n"), filename: "", contentType: "application/pdf", outName: "receipt.pdf"},
	}

	validator := NewReceiptValidator(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := validator.Validate(bytes.NewReader(tt.data), tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, file.ContentType)
			assert.Equal(t, tt.outName, file.Filename)
			assert.Equal(t, tt.width, file.Width)
			assert.Equal(t, tt.data, file.Data)
		})
	}
}

func TestReceiptValidator_Rejects(t *testing.T) {
	corruptPNG := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x01}, 32)...)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrReceiptEmpty},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"), want: ErrReceiptType},
		{name: "text", data: []byte("hello, this is not a receipt"), want: ErrReceiptType},
		{name: "corrupt png", data: corruptPNG, want: ErrReceiptCorrupt},
	}

	validator := NewReceiptValidator(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Validate(bytes.NewReader(tt.data), "receipt.png")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReceiptValidator_SizeLimit(t *testing.T) {
	validator := NewReceiptValidator(16)
	assert.Equal(t, int64(16), validator.MaxBytes())

	_, err := validator.Validate(strings.NewReader("%PDF-1.4 "+strings.Repeat("x", 16)), "big.pdf")
	assert.ErrorIs(t, err, ErrReceiptTooLarge)

	file, err := validator.Validate(strings.NewReader("%PDF-1.4 1234567"), "ok.pdf")
	require.NoError(t, err)
	assert.Len(t, file.Data, 16)
}

func TestNewReceiptValidator_Default(t *testing.T) {
	assert.Equal(t, int64(8<<20), NewReceiptValidator(-1).MaxBytes())
}
