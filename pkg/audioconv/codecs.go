package audioconv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	c := Clip{Samples: IntToFloat(buf.Data, depth), Rate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if buf.Format != nil {
		if buf.Format.SampleRate > 0 {
			c.Rate = buf.Format.SampleRate
		}
		if buf.Format.NumChannels > 0 {
			c.Channels = buf.Format.NumChannels
		}
	}
	if c.Rate <= 0 {
		return Clip{}, errors.New("wav without sample rate")
	}
	return c, nil
}

// decodeMP3 always yields 16-bit little endian stereo.
func decodeMP3(r io.ReadSeeker) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("read mp3: %w", err)
	}

	ints := make([]int16, len(raw)/2)
	for i := range ints {
		ints[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return Clip{Samples: Int16ToFloat(ints), Rate: dec.SampleRate(), Channels: 2}, nil
}

func decodeVorbis(r io.ReadSeeker) (Clip, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return Clip{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return Clip{}, errors.New("invalid vorbis stream")
	}
	return Clip{Samples: pcm, Rate: format.SampleRate, Channels: format.Channels}, nil
}
