package media

import (
	"bytes"
	stderrors "errors"
	"io"
	"time"

	"github.com/tcolgate/mp3"

	"github.com/tphakala/birddeck/internal/errors"
)

// maxVerifyFrames bounds how much of a clip is parsed during verification
const maxVerifyFrames = 32

// VerifyMP3 checks that data starts with decodable MPEG audio frames and returns the duration of
// the frames it read. Error pages served with a 200 status fail here.
func VerifyMP3(data []byte) (time.Duration, error) {
	var (
		dec      = mp3.NewDecoder(bytes.NewReader(data))
		frame    mp3.Frame
		skipped  int
		frames   int
		duration time.Duration
	)

	for frames < maxVerifyFrames {
		err := dec.Decode(&frame, &skipped)
		if err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if frames > 0 {
				break
			}
			return 0, errors.New(err).
				Component("media").
				Category(errors.CategoryAudioFetch).
				Context("operation", "verify_mp3").
				Build()
		}
		frames++
		duration += frame.Duration()
	}

	if frames == 0 {
		return 0, errors.Newf("payload contains no MP3 frames").
			Component("media").
			Category(errors.CategoryAudioFetch).
			Context("operation", "verify_mp3").
			Context("size", len(data)).
			Build()
	}
	return duration, nil
}
