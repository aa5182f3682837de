package file

import (
	"context"
	"fmt"
	"sync"

	"github.com/abduss/mediahost/internal/media"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/abduss/mediahost/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// confirmJob is the state shared by the confirm skeleton and a deriver.
type confirmJob struct {
	file        File
	data        []byte
	contentType string
	requests    []VariantRequest
	adapter     storage.Adapter
	// attempt scopes derived object keys to this confirm.
	attempt string
}

// derivation is what a deriver adds to the record.
type derivation struct {
	variants  []Variant
	url       *string
	thumbnail *Variant
}

// VariantDeriver is the kind-specific part of confirm.
type VariantDeriver interface {
	// Validate inspects the downloaded bytes. ErrContentMismatch triggers a compensating delete.
	Validate(job *confirmJob) error
	// Derive produces renditions. On error it must not leave uploaded objects behind.
	Derive(ctx context.Context, job *confirmJob) (derivation, error)
}

type videoProber interface {
	Probe(ctx context.Context, data []byte) (media.VideoInfo, error)
	Thumbnail(ctx context.Context, data []byte) (media.Rendition, error)
}

// imageDeriver validates signatures and renders requested sizes and formats.
type imageDeriver struct {
	logger *zap.Logger
}

func (d *imageDeriver) Validate(job *confirmJob) error {
	if !validation.ValidateMagicBytes(job.data, job.contentType) {
		return fmt.Errorf("%w: declared %s, detected %s", ErrContentMismatch, job.contentType, validation.DetectContentType(job.data))
	}
	if _, err := media.DecodeConfig(job.data); err != nil {
		return fmt.Errorf("%w: %v", ErrContentMismatch, err)
	}
	return nil
}

func (d *imageDeriver) Derive(ctx context.Context, job *confirmJob) (derivation, error) {
	info, err := media.DecodeConfig(job.data)
	if err != nil {
		return derivation{}, err
	}

	original := Variant{
		URL:        job.adapter.ObjectURL(job.file.ObjectName),
		Width:      info.Width,
		Height:     info.Height,
		Size:       int64(len(job.data)),
		Format:     info.Format,
		Label:      media.Label(info.Width, info.Height),
		ObjectName: job.file.ObjectName,
	}

	requests := planRenditions(info, job.requests)
	results := make([]Variant, len(requests))

	var (
		mu       sync.Mutex
		uploaded []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			rendition, err := media.Transform(job.data, req.Size, req.Format)
			if err != nil {
				return fmt.Errorf("render %s %s: %w", req.Size, req.Format, err)
			}
			name := storage.VariantObjectName(job.file.ProjectID, job.file.ID, job.attempt, rendition.Width, rendition.Height, rendition.Format.Extension())
			url, err := job.adapter.UploadObject(gctx, name, rendition.Data, rendition.Format.ContentType())
			if err != nil {
				return fmt.Errorf("upload variant %s: %w", name, err)
			}

			mu.Lock()
			uploaded = append(uploaded, name)
			mu.Unlock()

			results[i] = Variant{
				URL:        url,
				Width:      rendition.Width,
				Height:     rendition.Height,
				Size:       int64(len(rendition.Data)),
				Format:     string(rendition.Format),
				Label:      media.Label(rendition.Width, rendition.Height),
				ObjectName: name,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.discard(context.WithoutCancel(ctx), job.adapter, uploaded)
		return derivation{}, err
	}

	variants := append([]Variant{original}, dedupeVariants(results)...)
	return derivation{variants: variants, thumbnail: smallest(variants)}, nil
}

func (d *imageDeriver) discard(ctx context.Context, adapter storage.Adapter, names []string) {
	for _, name := range names {
		if err := adapter.DeleteObject(ctx, name); err != nil {
			d.logger.Warn("discard variant", zap.String("object", name), zap.Error(err))
		}
	}
}

// planRenditions drops requests whose output would equal the original and
// collapses requests that resolve to the same size and format.
func planRenditions(info media.ImageInfo, requests []VariantRequest) []VariantRequest {
	type key struct {
		w, h   int
		format media.Format
	}
	seen := make(map[key]struct{}, len(requests))
	out := make([]VariantRequest, 0, len(requests))
	for _, req := range requests {
		w, h := req.Size.Resolve(info.Width, info.Height)
		if string(req.Format) == info.Format && w == info.Width && h == info.Height {
			continue
		}
		k := key{w: w, h: h, format: req.Format}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, req)
	}
	return out
}

func dedupeVariants(variants []Variant) []Variant {
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, ok := seen[v.ObjectName]; ok {
			continue
		}
		seen[v.ObjectName] = struct{}{}
		out = append(out, v)
	}
	return out
}

func smallest(variants []Variant) *Variant {
	if len(variants) == 0 {
		return nil
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Size < best.Size {
			best = v
		}
	}
	return &best
}

// videoDeriver probes the video and extracts a poster frame. Failures are logged only.
type videoDeriver struct {
	prober videoProber
	logger *zap.Logger
}

func (d *videoDeriver) Validate(job *confirmJob) error { return nil }

func (d *videoDeriver) Derive(ctx context.Context, job *confirmJob) (derivation, error) {
	objectURL := job.adapter.ObjectURL(job.file.ObjectName)
	log := d.logger.With(zap.String("file_id", job.file.ID.String()))

	source := Variant{
		URL:        objectURL,
		Size:       int64(len(job.data)),
		Format:     formatFromContentType(job.contentType),
		Label:      "source",
		ObjectName: job.file.ObjectName,
	}
	out := derivation{url: &objectURL}

	if d.prober == nil {
		out.variants = []Variant{source}
		return out, nil
	}

	info, err := d.prober.Probe(ctx, job.data)
	if err != nil {
		log.Warn("video probe failed", zap.Error(err))
	} else {
		source.Width, source.Height = info.Width, info.Height
		if info.Width > 0 && info.Height > 0 {
			source.Label = media.Label(info.Width, info.Height)
		}
	}
	out.variants = []Variant{source}

	frame, err := d.prober.Thumbnail(ctx, job.data)
	if err != nil {
		log.Warn("video thumbnail failed", zap.Error(err))
		return out, nil
	}

	name := storage.ThumbnailObjectName(job.file.ProjectID, job.file.ID, job.attempt)
	url, err := job.adapter.UploadObject(ctx, name, frame.Data, frame.Format.ContentType())
	if err != nil {
		log.Warn("video thumbnail upload failed", zap.Error(err))
		return out, nil
	}

	thumb := Variant{
		URL:        url,
		Width:      frame.Width,
		Height:     frame.Height,
		Size:       int64(len(frame.Data)),
		Format:     string(frame.Format),
		Label:      "thumbnail",
		ObjectName: name,
	}
	out.variants = append(out.variants, thumb)
	out.thumbnail = &thumb
	return out, nil
}

// otherDeriver stores opaque files as-is.
type otherDeriver struct{}

func (otherDeriver) Validate(job *confirmJob) error { return nil }

func (otherDeriver) Derive(ctx context.Context, job *confirmJob) (derivation, error) {
	url := job.adapter.ObjectURL(job.file.ObjectName)
	return derivation{variants: []Variant{}, url: &url}, nil
}

func formatFromContentType(contentType string) string {
	ct := validation.NormalizeContentType(contentType)
	for i := len(ct) - 1; i >= 0; i-- {
		if ct[i] == '/' {
			return ct[i+1:]
		}
	}
	return ct
}
