package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// PNG encodes the given payload as a QR code PNG of size x size pixels.
// Student credential cards embed the student code this way.
func PNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	if size <= 0 {
		size = 256
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
