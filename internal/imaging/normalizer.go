// Package imaging bounds and re-encodes uploaded profile photos.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageTooLarge is returned when the declared upload size reaches the ceiling.
var ErrImageTooLarge = errors.New("image too large")

// Config controls the normalization pipeline. MaxBytes and JPEGQuality are
// product settings, see [image] in config.toml.
type Config struct {
	MaxBytes            int64
	MaxDimension        int
	JPEGQuality         float64 // 0..1
	FlattenTransparency bool
}

func DefaultConfig() Config {
	return Config{
		MaxBytes:     10 * units.MiB,
		MaxDimension: 300,
		JPEGQuality:  0.95,
	}
}

type encoder func(w io.Writer, img image.Image) error

type strategy struct {
	mime string
	enc  encoder
}

// Normalizer shrinks an image into a square bounding box and re-encodes it.
// It never fails on bad input: decode or encode problems yield the input unchanged.
type Normalizer struct {
	cfg      Config
	log      zerolog.Logger
	encoders map[string]encoder
}

func NewNormalizer(cfg Config, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		cfg: cfg,
		log: log.With().Str("component", "imaging").Logger(),
		encoders: map[string]encoder{
			MIMEPNG:  encodePNG,
			MIMEJPEG: encodeJPEG(jpegQuality(cfg.JPEGQuality)),
		},
	}
}

// Normalize takes a data URI and its declared byte size and returns the
// re-encoded data URI. The only error besides context cancellation is
// ErrImageTooLarge.
func (n *Normalizer) Normalize(ctx context.Context, dataURI string, size int64) (string, error) {
	if n.cfg.MaxBytes > 0 && size >= n.cfg.MaxBytes {
		return "", fmt.Errorf("%w: %s exceeds the %s limit", ErrImageTooLarge,
			units.BytesSize(float64(size)), units.BytesSize(float64(n.cfg.MaxBytes)))
	}

	du, err := dataurl.DecodeString(dataURI)
	if err != nil {
		n.log.Debug().Err(err).Msg("not a data uri, keeping original")
		return dataURI, nil
	}
	src, _, err := image.Decode(bytes.NewReader(du.Data))
	if err != nil {
		n.log.Debug().Err(err).Msg("decode failed, keeping original")
		return dataURI, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime := sourceMIME(du)
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), n.cfg.MaxDimension)
	canvas := n.draw(src, w, h)

	for _, s := range n.strategies(mime) {
		var buf bytes.Buffer
		if err := s.enc(&buf, canvas); err != nil {
			n.log.Debug().Err(err).Str("format", s.mime).Msg("encode failed, trying next strategy")
			continue
		}
		n.log.Debug().
			Str("source", mime).
			Str("format", s.mime).
			Int("width", w).
			Int("height", h).
			Int("bytes", buf.Len()).
			Msg("image normalized")
		return toDataURI(buf.Bytes(), s.mime), nil
	}

	n.log.Warn().Str("source", mime).Msg("all encoders failed, keeping original")
	return dataURI, nil
}

// strategies orders the encoders: PNG sources stay PNG, everything else
// becomes JPEG, and the other format is tried next.
func (n *Normalizer) strategies(sourceMIME string) []strategy {
	order := []string{MIMEJPEG, MIMEPNG}
	if sourceMIME == MIMEPNG {
		order = []string{MIMEPNG, MIMEJPEG}
	}
	out := make([]strategy, 0, len(order))
	for _, m := range order {
		if enc, ok := n.encoders[m]; ok {
			out = append(out, strategy{mime: m, enc: enc})
		}
	}
	return out
}

func (n *Normalizer) draw(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if n.cfg.FlattenTransparency {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// FitWithin clamps the larger side to bound and scales the other side
// proportionally, rounding to the nearest pixel. Smaller images are kept.
func FitWithin(w, h, bound int) (int, int) {
	if bound <= 0 || (w <= bound && h <= bound) {
		return w, h
	}
	if w >= h {
		nh := int(math.Round(float64(h) * float64(bound) / float64(w)))
		return bound, atLeastOne(nh)
	}
	nw := int(math.Round(float64(w) * float64(bound) / float64(h)))
	return atLeastOne(nw), bound
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	switch {
	case v < 1:
		return jpeg.DefaultQuality
	case v > 100:
		return 100
	}
	return v
}

func encodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// encodeJPEG composites onto opaque white first; JPEG has no alpha channel
// and transparent pixels would otherwise turn black.
func encodeJPEG(quality int) encoder {
	return func(w io.Writer, img image.Image) error {
		b := img.Bounds()
		bg := image.NewRGBA(b)
		draw.Draw(bg, b, image.White, image.Point{}, draw.Src)
		draw.Draw(bg, b, img, b.Min, draw.Over)
		return jpeg.Encode(w, bg, &jpeg.Options{Quality: quality})
	}
}
