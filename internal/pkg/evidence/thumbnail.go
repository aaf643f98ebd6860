package evidence

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const thumbMaxEdge = 480

// Thumbnail renders a small JPEG preview of a JPEG/PNG receipt for the admin
// review surface. Non-image receipts (PDF, WEBP) are not thumbnailed; callers
// skip the preview for those.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode receipt image: %w", err)
	}

	thumb := imaging.Fit(img, thumbMaxEdge, thumbMaxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode receipt thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
