package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SizeKind selects how a variant's dimensions are derived from the original.
type SizeKind int

const (
	// SizeSource keeps the original dimensions.
	SizeSource SizeKind = iota
	// SizeMaxWidth bounds the width, preserving aspect ratio.
	SizeMaxWidth
	// SizeExact fits the image inside a width x height box.
	SizeExact
)

// SizeSpec is a parsed variant size request: Source, MaxWidth(n) or Exact(w, h).
type SizeSpec struct {
	Kind   SizeKind
	Width  int
	Height int
}

// Source requests the original dimensions.
func Source() SizeSpec { return SizeSpec{Kind: SizeSource} }

// MaxWidth requests a width bound of n pixels.
func MaxWidth(n int) SizeSpec { return SizeSpec{Kind: SizeMaxWidth, Width: n} }

// Exact requests an image that fits within w x h.
func Exact(w, h int) SizeSpec { return SizeSpec{Kind: SizeExact, Width: w, Height: h} }

// ParseSizeSpec parses the labels accepted at the API boundary:
// "source" or "original", "max{N}" and "{W}x{H}".
func ParseSizeSpec(label string) (SizeSpec, error) {
	raw := strings.ToLower(strings.TrimSpace(label))
	switch {
	case raw == "source" || raw == "original":
		return Source(), nil
	case strings.HasPrefix(raw, "max"):
		n, err := parsePositive(strings.TrimPrefix(raw, "max"))
		if err != nil {
			return SizeSpec{}, fmt.Errorf("invalid size label %q: %w", label, err)
		}
		return MaxWidth(n), nil
	case strings.Contains(raw, "x"):
		parts := strings.SplitN(raw, "x", 2)
		w, err := parsePositive(parts[0])
		if err != nil {
			return SizeSpec{}, fmt.Errorf("invalid size label %q: %w", label, err)
		}
		h, err := parsePositive(parts[1])
		if err != nil {
			return SizeSpec{}, fmt.Errorf("invalid size label %q: %w", label, err)
		}
		return Exact(w, h), nil
	default:
		return SizeSpec{}, fmt.Errorf("invalid size label %q", label)
	}
}

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxDimension {
		return 0, fmt.Errorf("dimension %d out of range", n)
	}
	return n, nil
}

// IsSource reports whether the spec keeps the original dimensions.
func (s SizeSpec) IsSource() bool { return s.Kind == SizeSource }

func (s SizeSpec) String() string {
	switch s.Kind {
	case SizeMaxWidth:
		return fmt.Sprintf("max%d", s.Width)
	case SizeExact:
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	default:
		return "source"
	}
}

// Resolve returns the target dimensions for an original of srcW x srcH. It never upscales.
func (s SizeSpec) Resolve(srcW, srcH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}

	scale := 1.0
	switch s.Kind {
	case SizeMaxWidth:
		scale = math.Min(scale, float64(s.Width)/float64(srcW))
	case SizeExact:
		scale = math.Min(scale, math.Min(float64(s.Width)/float64(srcW), float64(s.Height)/float64(srcH)))
	}
	if scale >= 1 {
		return srcW, srcH
	}

	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if s.Kind == SizeMaxWidth {
		w = s.Width
	}
	return max(w, 1), max(h, 1)
}

// Label names a rendition by its resolved resolution.
func Label(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}
