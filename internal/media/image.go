package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// maxDimension caps decoded images to keep memory bounded.
const maxDimension = 16384

const jpegQuality = 85

// ErrUnsupportedFormat is returned for formats that cannot be decoded or encoded.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format is an encodable image format.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
)

// ParseFormat accepts format names and common extensions.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWEBP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// FormatFromContentType maps an image MIME type to a Format; ok is false for unknown types.
func FormatFromContentType(contentType string) (Format, bool) {
	f, err := ParseFormat(strings.TrimPrefix(strings.ToLower(contentType), "image/"))
	return f, err == nil
}

// Extension is used in object names.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// ImageInfo is the intrinsic metadata of an encoded image.
type ImageInfo struct {
	// Format is the decoder name reported by image.DecodeConfig (jpeg, png, gif, webp, bmp, tiff).
	Format string
	Width  int
	Height int
}

// DecodeConfig reads format and dimensions without decoding pixel data.
func DecodeConfig(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("decode image config: empty image")
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return ImageInfo{}, fmt.Errorf("decode image config: %dx%d exceeds %d pixels per side", cfg.Width, cfg.Height, maxDimension)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Rendition is an encoded derived image.
type Rendition struct {
	Data   []byte
	Width  int
	Height int
	Format Format
}

// Transform decodes data, resizes it according to spec and re-encodes it as format.
func Transform(data []byte, spec SizeSpec, format Format) (Rendition, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Rendition{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := spec.Resolve(bounds.Dx(), bounds.Dy())
	if w != bounds.Dx() || h != bounds.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return Rendition{}, err
	}

	return Rendition{Data: buf.Bytes(), Width: w, Height: h, Format: format}, nil
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case FormatGIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case FormatWEBP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}
