package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/abduss/mediahost/internal/config"
)

// ErrToolUnavailable is returned when ffprobe or ffmpeg cannot be found.
var ErrToolUnavailable = errors.New("media tool unavailable")

// VideoInfo holds the probed stream metadata.
type VideoInfo struct {
	Duration time.Duration
	Width    int
	Height   int
}

// Prober inspects videos with ffprobe and extracts thumbnails with ffmpeg.
type Prober struct {
	ffprobe      string
	ffmpeg       string
	timeout      time.Duration
	thumbnailMax int
	thumbnailAt  time.Duration
}

// NewProber builds a Prober from media configuration.
func NewProber(cfg config.MediaConfig) *Prober {
	p := &Prober{
		ffprobe:      cfg.FFprobePath,
		ffmpeg:       cfg.FFmpegPath,
		timeout:      cfg.ProbeTimeout,
		thumbnailMax: cfg.ThumbnailMax,
		thumbnailAt:  time.Second,
	}
	if p.timeout <= 0 {
		p.timeout = 30 * time.Second
	}
	if p.thumbnailMax <= 0 {
		p.thumbnailMax = 480
	}
	return p
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration and dimensions of the first video stream.
func (p *Prober) Probe(ctx context.Context, data []byte) (VideoInfo, error) {
	bin, err := lookTool(p.ffprobe)
	if err != nil {
		return VideoInfo{}, err
	}

	path, cleanup, err := spool(data)
	if err != nil {
		return VideoInfo{}, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info VideoInfo
	if len(parsed.Streams) > 0 {
		info.Width = parsed.Streams[0].Width
		info.Height = parsed.Streams[0].Height
	}
	if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	return info, nil
}

// Thumbnail extracts a JPEG frame one second into the video, scaled to fit thumbnailMax.
func (p *Prober) Thumbnail(ctx context.Context, data []byte) (Rendition, error) {
	bin, err := lookTool(p.ffmpeg)
	if err != nil {
		return Rendition{}, err
	}

	path, cleanup, err := spool(data)
	if err != nil {
		return Rendition{}, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	scale := fmt.Sprintf("scale=w='min(%d,iw)':h='min(%d,ih)':force_original_aspect_ratio=decrease", p.thumbnailMax, p.thumbnailMax)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(p.thumbnailAt.Seconds(), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-vf", scale,
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Rendition{}, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return Rendition{}, fmt.Errorf("ffmpeg: no frame extracted")
	}

	info, err := DecodeConfig(stdout.Bytes())
	if err != nil {
		return Rendition{}, err
	}
	return Rendition{Data: stdout.Bytes(), Width: info.Width, Height: info.Height, Format: FormatJPEG}, nil
}

func lookTool(name string) (string, error) {
	if name == "" {
		return "", ErrToolUnavailable
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolUnavailable, name)
	}
	return path, nil
}

// spool writes data to a temporary file; ffprobe needs a seekable input for most containers.
func spool(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "mediahost-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
