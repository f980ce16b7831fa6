package qrcode

import (
	"encoding/base64"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// Size bounds for rendered codes, in pixels
const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

// Encoder renders a URL as a QR code image
type Encoder interface {
	// PNG returns the code as PNG bytes, size pixels square
	PNG(content string, size int) ([]byte, error)
}

type pngEncoder struct {
	level goqrcode.RecoveryLevel
}

// NewEncoder returns an encoder using medium error correction
func NewEncoder() Encoder {
	return &pngEncoder{level: goqrcode.Medium}
}

func (e *pngEncoder) PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	png, err := goqrcode.Encode(content, e.level, ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// ClampSize keeps size within [MinSize, MaxSize]; zero selects DefaultSize.
func ClampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// DataURI formats PNG bytes for embedding in HTML or JSON
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
