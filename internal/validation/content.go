package validation

import (
	"bytes"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var extensionsByType = map[string][]string{
	"image/jpeg":       {".jpg", ".jpeg", ".jpe", ".jfif"},
	"image/png":        {".png"},
	"image/gif":        {".gif"},
	"image/webp":       {".webp"},
	"image/avif":       {".avif"},
	"image/heic":       {".heic"},
	"image/heif":       {".heif", ".heic"},
	"image/bmp":        {".bmp"},
	"image/tiff":       {".tif", ".tiff"},
	"image/svg+xml":    {".svg"},
	"application/pdf":  {".pdf"},
	"application/zip":  {".zip"},
	"application/json": {".json"},
	"text/plain":       {".txt", ".text", ".log", ".md"},
	"text/csv":         {".csv"},
	"audio/mpeg":       {".mp3"},
	"video/mp4":        {".mp4", ".m4v"},
	"video/quicktime":  {".mov", ".qt"},
	"video/webm":       {".webm"},
	"video/x-matroska": {".mkv"},
}

type pattern struct {
	offset int
	magic  []byte
}

// signature matches when every pattern matches.
type signature []pattern

func (s signature) match(buf []byte) bool {
	for _, p := range s {
		end := p.offset + len(p.magic)
		if len(buf) < end || !bytes.Equal(buf[p.offset:end], p.magic) {
			return false
		}
	}
	return true
}

func sig(offset int, magic string) signature {
	return signature{{offset: offset, magic: []byte(magic)}}
}

func ftypBrands(brands ...string) []signature {
	out := make([]signature, 0, len(brands))
	for _, brand := range brands {
		out = append(out, signature{{offset: 4, magic: []byte("ftyp")}, {offset: 8, magic: []byte(brand)}})
	}
	return out
}

// signaturesByType lists the accepted leading byte sequences per content type.
var signaturesByType = map[string][]signature{
	"image/jpeg":       {sig(0, "\xFF\xD8\xFF")},
	"image/png":        {sig(0, "\x89PNG\r\n\x1a\n")},
	"image/gif":        {sig(0, "GIF87a"), sig(0, "GIF89a")},
	"image/webp":       {signature{{0, []byte("RIFF")}, {8, []byte("WEBP")}}},
	"image/bmp":        {sig(0, "BM")},
	"image/tiff":       {sig(0, "II*\x00"), sig(0, "MM\x00*")},
	"image/avif":       ftypBrands("avif", "avis"),
	"image/heic":       ftypBrands("heic", "heix", "hevc", "hevx", "mif1", "msf1"),
	"image/heif":       ftypBrands("heic", "heix", "hevc", "hevx", "mif1", "msf1"),
	"application/pdf":  {sig(0, "%PDF")},
	"application/zip":  {sig(0, "PK\x03\x04")},
	"video/mp4":        {sig(4, "ftyp")},
	"video/quicktime":  {sig(4, "ftyp"), sig(4, "moov"), sig(4, "mdat"), sig(4, "wide")},
	"video/webm":       {sig(0, "\x1A\x45\xDF\xA3")},
	"video/x-matroska": {sig(0, "\x1A\x45\xDF\xA3")},
}

// NormalizeContentType lowercases a MIME type and strips its parameters.
func NormalizeContentType(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// IsImage reports whether contentType belongs to the image family.
func IsImage(contentType string) bool {
	return strings.HasPrefix(NormalizeContentType(contentType), "image/")
}

// IsVideo reports whether contentType belongs to the video family.
func IsVideo(contentType string) bool {
	return strings.HasPrefix(NormalizeContentType(contentType), "video/")
}

// ValidateContentTypeExtension reports whether the extension of fileName is conventional for contentType.
// Names without an extension and content types the table does not know are accepted.
func ValidateContentTypeExtension(contentType, fileName string) bool {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, `\`, "/")))
	if ext == "" || ext == "." {
		return true
	}

	allowed, ok := extensionsByType[NormalizeContentType(contentType)]
	if !ok {
		return true
	}
	for _, candidate := range allowed {
		if candidate == ext {
			return true
		}
	}
	return false
}

// ValidateMagicBytes reports whether buf starts with a signature of contentType.
// Unknown content types always pass; a buffer too short for any known signature fails.
func ValidateMagicBytes(buf []byte, contentType string) bool {
	signatures, ok := signaturesByType[NormalizeContentType(contentType)]
	if !ok {
		return true
	}
	for _, s := range signatures {
		if s.match(buf) {
			return true
		}
	}
	return false
}

// DetectContentType sniffs buf and returns the detected MIME type without parameters.
func DetectContentType(buf []byte) string {
	return NormalizeContentType(mimetype.Detect(buf).String())
}

// ValidateFile runs the name, extension and signature checks. Buffer checks are skipped when buf is nil.
func ValidateFile(name, contentType string, buf []byte) Result {
	res := ValidateFileName(name)

	if NormalizeContentType(contentType) == "" {
		res.fail("content type is required")
	} else if !ValidateContentTypeExtension(contentType, name) {
		res.fail("file extension does not match content type " + NormalizeContentType(contentType))
	}

	if buf != nil && !ValidateMagicBytes(buf, contentType) {
		res.fail("file content does not match declared content type (detected " + DetectContentType(buf) + ")")
	}

	return res
}
