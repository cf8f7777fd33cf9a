// Package imaging turns uploaded product photos into the square thumbnails
// shown next to picker entries.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// ThumbnailSize is the edge length of a stored thumbnail.
const ThumbnailSize = 256

// MaxUploadBytes caps the size of an accepted upload.
const MaxUploadBytes = 8 << 20

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

var (
	// ErrUnsupported is returned for anything but JPEG and PNG.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned for uploads over MaxUploadBytes.
	ErrTooLarge = errors.New("image too large")
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Thumbnail is an encoded thumbnail.
type Thumbnail struct {
	Data []byte
	MIME string
}

// MakeThumbnail reads an image, crops it to a centered square and scales the
// square to size x size. Images smaller than size are cropped but never
// enlarged. The result is always JPEG.
func MakeThumbnail(r io.Reader, size int) (*Thumbnail, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	// Trust the bytes, not the client's Content-Type.
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	square := cropSquare(img)
	edge := square.Dx()
	if edge > size {
		edge = size
	}

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, square, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Thumbnail{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// cropSquare returns the largest centered square inside img's bounds.
func cropSquare(img image.Image) image.Rectangle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > h {
		off := (w - h) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
