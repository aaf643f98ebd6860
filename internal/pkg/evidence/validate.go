package evidence

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxReceiptSize is the upload limit for a single receipt file.
const MaxReceiptSize = 10 * 1024 * 1024 // 10 MB

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

var allowedMime = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ValidateReceipt checks filename extension and sniffed content against the
// receipt whitelist (JPEG, PNG, WEBP, PDF) and the size limit. Returns the
// detected mime type. Detection uses the file head, not the client-declared
// Content-Type, so a renamed HTML file is still rejected.
func ValidateReceipt(filename string, size int64, head []byte) (string, error) {
	if size <= 0 {
		return "", errors.New("empty file")
	}
	if size > MaxReceiptSize {
		return "", errors.New("receipt exceeds the 10 MB limit")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", errors.New("only JPG, JPEG, PNG, WEBP and PDF receipts are supported")
	}

	detected := http.DetectContentType(head)
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}

	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("invalid file type: HTML content is not allowed")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", errors.New("SVG/XML files are not supported")
	}

	if allowedMime[detected] {
		return detected, nil
	}

	// PDF heads can sniff as octet-stream depending on the Go version; trust
	// the magic bytes in that case.
	if ext == ".pdf" && strings.HasPrefix(string(head), "%PDF-") {
		return "application/pdf", nil
	}

	return "", errors.New("file content does not match a supported receipt format")
}

// IsImageMime reports whether the detected mime is a raster image we can
// thumbnail for the review surface.
func IsImageMime(mime string) bool {
	return mime == "image/jpeg" || mime == "image/png"
}
