// Package opus registers an Ogg Opus decoder with audioconv. It links
// libopusfile, so import it for side effects only where that is available.
package opus

import (
	"io"

	popus "github.com/pekim/opus"

	"mist/pkg/audioconv"
)

// Opus always decodes at 48 kHz.
const rate = 48000

func init() {
	audioconv.Register("opus", decode)
}

func decode(r io.ReadSeeker) (audioconv.Clip, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return audioconv.Clip{}, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var (
		pcm []float32
		buf = make([]int16, rate*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, audioconv.Int16ToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return audioconv.Clip{}, err
		}
	}
	return audioconv.Clip{Samples: pcm, Rate: rate, Channels: ch}, nil
}
