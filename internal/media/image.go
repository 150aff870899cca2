package media

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/tphakala/birddeck/internal/errors"
)

// ImageOptions controls transcoding
type ImageOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality
}

// TranscodeImage decodes data, downscales it to fit the bounding box keeping the aspect ratio
// and encodes it in format. Images already inside the box keep their size.
func TranscodeImage(data []byte, format string, opts ImageOptions) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(err).
			Component("media").
			Category(errors.CategoryImageProcess).
			Context("operation", "decode").
			Build()
	}

	bounds := src.Bounds()
	w, h := fitBox(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if format == FormatJPEG {
		// JPEG has no alpha channel, flatten onto white
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, dst)
	default:
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, errors.New(err).
			Component("media").
			Category(errors.CategoryImageProcess).
			Context("operation", "encode").
			Context("format", format).
			Build()
	}
	return buf.Bytes(), nil
}

// fitBox scales w x h down to fit maxW x maxH. A non-positive bound is unlimited.
func fitBox(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1.0 {
		return w, h
	}
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	if maxW > 0 {
		nw = min(nw, maxW)
	}
	if maxH > 0 {
		nh = min(nh, maxH)
	}
	return nw, nh
}
