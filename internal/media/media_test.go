package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/abduss/mediahost/internal/config"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func encodeTestImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestParseSizeSpec(t *testing.T) {
	cases := map[string]SizeSpec{
		"source":    Source(),
		"Original":  Source(),
		"max800":    MaxWidth(800),
		"1200x800":  Exact(1200, 800),
		" MAX1920 ": MaxWidth(1920),
	}
	for label, want := range cases {
		got, err := ParseSizeSpec(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	for _, bad := range []string{"", "max", "max0", "maxabc", "12x", "x12", "-5x10", "huge", "99999x1"} {
		_, err := ParseSizeSpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSizeSpecResolveNeverUpscales(t *testing.T) {
	w, h := MaxWidth(800).Resolve(1920, 1080)
	assert.Equal(t, 800, w)
	assert.Equal(t, 450, h)

	w, h = MaxWidth(4000).Resolve(1920, 1080)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	w, h = Exact(400, 400).Resolve(1920, 1080)
	assert.Equal(t, 400, w)
	assert.Equal(t, 225, h)

	w, h = Exact(5000, 5000).Resolve(300, 200)
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)

	w, h = Source().Resolve(640, 480)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestSizeSpecString(t *testing.T) {
	assert.Equal(t, "source", Source().String())
	assert.Equal(t, "max800", MaxWidth(800).String())
	assert.Equal(t, "10x20", Exact(10, 20).String())
	assert.Equal(t, "1920x1080", Label(1920, 1080))
}

func TestDecodeConfig(t *testing.T) {
	info, err := DecodeConfig(encodeTestImage(t, 64, 32, imaging.PNG))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 64, Height: 32}, info)

	_, err = DecodeConfig([]byte("not an image"))
	assert.Error(t, err)
}

func TestTransformResizesAndReencodes(t *testing.T) {
	original := encodeTestImage(t, 1920, 1080, imaging.JPEG)

	rendition, err := Transform(original, MaxWidth(800), FormatWEBP)
	require.NoError(t, err)
	assert.Equal(t, 800, rendition.Width)
	assert.Equal(t, 450, rendition.Height)
	assert.Equal(t, FormatWEBP, rendition.Format)

	cfg, err := webp.DecodeConfig(bytes.NewReader(rendition.Data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 450, cfg.Height)
}

func TestTransformSourceKeepsDimensions(t *testing.T) {
	original := encodeTestImage(t, 320, 240, imaging.PNG)

	rendition, err := Transform(original, Source(), FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 320, rendition.Width)
	assert.Equal(t, 240, rendition.Height)

	info, err := DecodeConfig(rendition.Data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, image.NewRGBA(image.Rect(0, 0, 1, 1)), Format("tga"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".JPG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)
	assert.Equal(t, "jpg", f.Extension())
	assert.Equal(t, "image/jpeg", f.ContentType())

	f, ok := FormatFromContentType("image/webp")
	assert.True(t, ok)
	assert.Equal(t, FormatWEBP, f)

	_, ok = FormatFromContentType("image/tiff")
	assert.False(t, ok)
}

func TestProberWithoutToolsFails(t *testing.T) {
	prober := NewProber(config.MediaConfig{
		FFprobePath: "/nonexistent/ffprobe",
		FFmpegPath:  "/nonexistent/ffmpeg",
	})

	_, err := prober.Probe(context.Background(), []byte("video"))
	assert.ErrorIs(t, err, ErrToolUnavailable)

	_, err = prober.Thumbnail(context.Background(), []byte("video"))
	assert.ErrorIs(t, err, ErrToolUnavailable)
}
