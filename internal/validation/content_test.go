package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d}
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
	webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	mp4Header  = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00")
	avifHeader = []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00")
	pdfHeader  = []byte("%PDF-1.7\n")
)

func TestValidateMagicBytesAcceptsSignatures(t *testing.T) {
	cases := map[string][]byte{
		"image/jpeg":                 jpegHeader,
		"image/png":                  pngHeader,
		"image/gif":                  gifHeader,
		"image/webp":                 webpHeader,
		"video/mp4":                  mp4Header,
		"image/avif":                 avifHeader,
		"application/pdf":            pdfHeader,
		"IMAGE/JPEG; charset=binary": jpegHeader,
	}
	for contentType, buf := range cases {
		assert.True(t, ValidateMagicBytes(buf, contentType), contentType)
	}
}

func TestValidateMagicBytesRejectsMismatch(t *testing.T) {
	assert.False(t, ValidateMagicBytes(pngHeader, "image/jpeg"))
	assert.False(t, ValidateMagicBytes(pngHeader[:4], "image/jpeg"))
	assert.False(t, ValidateMagicBytes(jpegHeader, "image/png"))
	assert.False(t, ValidateMagicBytes(mp4Header, "image/avif"))
	assert.False(t, ValidateMagicBytes([]byte("RIFF\x24\x00\x00\x00WAVE"), "image/webp"))
}

func TestValidateMagicBytesShortBuffers(t *testing.T) {
	for contentType, buf := range map[string][]byte{
		"image/jpeg": jpegHeader,
		"image/png":  pngHeader,
		"image/gif":  gifHeader,
		"image/webp": webpHeader,
	} {
		signatures := signaturesByType[contentType]
		required := 0
		for _, s := range signatures {
			for _, p := range s {
				if end := p.offset + len(p.magic); end > required {
					required = end
				}
			}
		}
		assert.False(t, ValidateMagicBytes(buf[:required-1], contentType), contentType)
		assert.False(t, ValidateMagicBytes(nil, contentType), contentType)
	}
}

func TestValidateMagicBytesUnknownTypePasses(t *testing.T) {
	assert.True(t, ValidateMagicBytes(nil, "application/x-custom"))
	assert.True(t, ValidateMagicBytes([]byte("anything"), "text/plain"))
	assert.True(t, ValidateMagicBytes(pngHeader, ""))
}

func TestValidateContentTypeExtension(t *testing.T) {
	assert.True(t, ValidateContentTypeExtension("image/jpeg", "photo.JPG"))
	assert.True(t, ValidateContentTypeExtension("image/jpeg; charset=utf-8", "photo.jpeg"))
	assert.True(t, ValidateContentTypeExtension("image/png", "noext"))
	assert.True(t, ValidateContentTypeExtension("application/x-unknown", "data.bin"))
	assert.False(t, ValidateContentTypeExtension("image/png", "photo.jpg"))
	assert.False(t, ValidateContentTypeExtension("video/mp4", "clip.exe"))
}

func TestValidateFile(t *testing.T) {
	res := ValidateFile("photo.jpg", "image/jpeg", nil)
	assert.True(t, res.Valid, res.Errors)

	res = ValidateFile("photo.jpg", "image/jpeg", pngHeader)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)

	res = ValidateFile("../photo.png", "image/jpeg", nil)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)

	res = ValidateFile("photo.jpg", "", nil)
	assert.False(t, res.Valid)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType(pngHeader))
	assert.Equal(t, "application/pdf", DetectContentType(pdfHeader))
}

func TestContentFamilies(t *testing.T) {
	assert.True(t, IsImage("Image/PNG"))
	assert.False(t, IsImage("video/mp4"))
	assert.True(t, IsVideo("video/webm; codecs=vp9"))
	assert.Equal(t, "text/plain", NormalizeContentType(" Text/Plain; charset=UTF-8 "))
}
