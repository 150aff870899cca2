package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/errors"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, format
}

var box = ImageOptions{MaxWidth: 400, MaxHeight: 400, Quality: 85}

func TestTranscodeImageDownscalesToJPEG(t *testing.T) {
	t.Parallel()

	out, err := TranscodeImage(encodePNG(t, 800, 600), FormatJPEG, box)
	require.NoError(t, err)

	cfg, format := decodeConfig(t, out)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestTranscodeImagePortraitKeepsAspect(t *testing.T) {
	t.Parallel()

	out, err := TranscodeImage(encodePNG(t, 300, 900), FormatPNG, box)
	require.NoError(t, err)

	cfg, format := decodeConfig(t, out)
	assert.Equal(t, "png", format)
	assert.Equal(t, 133, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestTranscodeImageNeverUpscales(t *testing.T) {
	t.Parallel()

	src := image.NewGray(image.Rect(0, 0, 120, 80))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, nil))

	out, err := TranscodeImage(buf.Bytes(), FormatJPEG, box)
	require.NoError(t, err)

	cfg, _ := decodeConfig(t, out)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestTranscodeImageRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := TranscodeImage([]byte("<html>not found</html>"), FormatJPEG, box)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcess))
}

func TestFitBox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{800, 600, 400, 400, 400, 300},
		{600, 800, 400, 400, 300, 400},
		{400, 400, 400, 400, 400, 400},
		{100, 50, 400, 400, 100, 50},
		{4000, 10, 400, 400, 400, 1},
		{800, 600, 0, 0, 800, 600},
	}
	for _, tt := range tests {
		w, h := fitBox(tt.w, tt.h, tt.maxW, tt.maxH)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}
