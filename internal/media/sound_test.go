package media

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birddeck/internal/errors"
)

// mpegFrameSize is the size of an MPEG-1 Layer III frame at 128 kbit/s, 44.1 kHz, no padding
const mpegFrameSize = 417

// fakeMP3 returns n silent MPEG-1 Layer III frames
func fakeMP3(n int) []byte {
	frame := make([]byte, mpegFrameSize)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
	return bytes.Repeat(frame, n)
}

func TestVerifyMP3AcceptsFrames(t *testing.T) {
	t.Parallel()

	duration, err := VerifyMP3(fakeMP3(4))
	require.NoError(t, err)
	assert.Positive(t, duration)
}

func TestVerifyMP3RejectsErrorPage(t *testing.T) {
	t.Parallel()

	_, err := VerifyMP3([]byte("<!DOCTYPE html><html><body>Recording not found</body></html>"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudioFetch))
}

func TestVerifyMP3RejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := VerifyMP3(nil)
	require.Error(t, err)
}
