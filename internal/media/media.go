// Package media derives thumbnails and reads dimensions and durations of
// gallery assets. Still images are handled in process; video and audio go
// through ffmpeg and ffprobe.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register decoder
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
)

// ErrNotMedia is returned when an asset cannot be read as the media type
// its extension claims.
var ErrNotMedia = errors.New("not a media file")

// DefaultThumbnailSize is the bounding box thumbnails are scaled into.
const DefaultThumbnailSize = 256

// Provider produces thumbnails and media attributes.
type Provider struct {
	Classifier assets.Classifier
	// Size is the edge of the square box a thumbnail must fit.
	Size    int
	FFmpeg  string
	FFprobe string
	Quality int
}

// NewProvider returns a provider with default tools and thumbnail size.
func NewProvider(classifier assets.Classifier) *Provider {
	return &Provider{
		Classifier: classifier,
		Size:       DefaultThumbnailSize,
		FFmpeg:     "ffmpeg",
		FFprobe:    "ffprobe",
		Quality:    jpeg.DefaultQuality,
	}
}

// Thumbnail writes a JPEG thumbnail of src to dst. Music and other files
// have no thumbnail and return ErrNotMedia.
func (p *Provider) Thumbnail(ctx context.Context, src, dst string) error {
	var img image.Image
	var err error
	switch p.Classifier.TypeOf(src) {
	case assets.TypeImage:
		img, err = decodeFile(src)
	case assets.TypeVideo:
		img, err = p.videoFrame(ctx, src)
	default:
		return ErrNotMedia
	}
	if err != nil {
		return err
	}
	return p.writeJPEG(Fit(img, p.Size), dst)
}

// Dimensions returns the pixel size of an image or the first video stream.
func (p *Provider) Dimensions(src string) (int, int, error) {
	switch p.Classifier.TypeOf(src) {
	case assets.TypeImage:
		f, err := os.Open(src)
		if err != nil {
			return 0, 0, err
		}
		defer func() { _ = f.Close() }()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrNotMedia, err)
		}
		return cfg.Width, cfg.Height, nil
	case assets.TypeVideo:
		out, err := p.probe(context.Background(), src,
			"-select_streams", "v:0",
			"-show_entries", "stream=width,height",
			"-of", "csv=s=x:p=0")
		if err != nil {
			return 0, 0, err
		}
		return parseDimensions(out)
	}
	return 0, 0, ErrNotMedia
}

// Duration returns the playing time of a video or audio asset. A zero
// duration is treated as not media.
func (p *Provider) Duration(src string) (time.Duration, error) {
	out, err := p.probe(context.Background(), src,
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1")
	if err != nil {
		return 0, err
	}
	return parseDuration(out)
}

func (p *Provider) probe(ctx context.Context, src string, args ...string) (string, error) {
	args = append([]string{"-v", "error"}, args...)
	args = append(args, src)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.FFprobe, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: ffprobe: %v: %s", ErrNotMedia, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (p *Provider) videoFrame(ctx context.Context, src string) (image.Image, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.FFmpeg,
		"-v", "error", "-i", src,
		"-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrNotMedia, err, strings.TrimSpace(stderr.String()))
	}
	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMedia, err)
	}
	return img, nil
}

func decodeFile(src string) (image.Image, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMedia, err)
	}
	return img, nil
}

func (p *Provider) writeJPEG(img image.Image, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// Fit scales img down to fit a size x size box, keeping its aspect ratio.
// Images already inside the box are returned unchanged.
func Fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}
	nw, nh := size, size
	if w > h {
		nh = max(1, h*size/w)
	} else {
		nw = max(1, w*size/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func parseDimensions(out string) (int, int, error) {
	line, _, _ := strings.Cut(out, "\n")
	ws, hs, ok := strings.Cut(strings.TrimSpace(line), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: no video stream", ErrNotMedia)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: width %q", ErrNotMedia, ws)
	}
	h, err := strconv.Atoi(strings.TrimRight(hs, "x"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: height %q", ErrNotMedia, hs)
	}
	return w, h, nil
}

func parseDuration(out string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("%w: no duration", ErrNotMedia)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
