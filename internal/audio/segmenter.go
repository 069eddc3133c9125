// Package audio turns microphone frames or audio files into recognized text.
package audio

import (
	"context"
	"fmt"
	"math"
	"time"

	"mist/internal/wake"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms
	frameDur   = time.Second * FrameSize / SampleRate
)

// Source is a mono 16 kHz input. Read fills the whole frame.
type Source interface {
	Start() error
	Read(frame []float32) error
	Stop() error
}

type VAD struct {
	// MinThreshold is the RMS floor for speech regardless of calibration.
	MinThreshold float64
	// AmbientRatio scales the calibrated noise floor into the threshold.
	AmbientRatio float64
	// Pause is the trailing silence that ends a phrase.
	Pause time.Duration
	// PreRoll is kept from before speech onset.
	PreRoll time.Duration
}

func DefaultVAD() VAD {
	return VAD{
		MinThreshold: 0.015,
		AmbientRatio: 1.5,
		Pause:        600 * time.Millisecond,
		PreRoll:      300 * time.Millisecond,
	}
}

// Segmenter captures one phrase at a time from a Source.
type Segmenter struct {
	src Source
	vad VAD
}

func NewSegmenter(src Source, vad VAD) *Segmenter {
	return &Segmenter{src: src, vad: vad}
}

// Capture calibrates for opt.Calibration, waits up to opt.Timeout for speech
// and records until a pause or opt.PhraseLimit. No onset in time is
// wake.ErrNoSpeech.
func (s *Segmenter) Capture(ctx context.Context, opt wake.ListenOptions) ([]float32, error) {
	if err := s.src.Start(); err != nil {
		return nil, fmt.Errorf("start source: %w", err)
	}
	defer s.src.Stop()

	frame := make([]float32, FrameSize)
	read := func() (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.src.Read(frame); err != nil {
			return 0, fmt.Errorf("read frame: %w", err)
		}
		return RMS(frame), nil
	}

	threshold := s.vad.MinThreshold
	if n := frames(opt.Calibration); n > 0 {
		var sum float64
		for range n {
			rms, err := read()
			if err != nil {
				return nil, err
			}
			sum += rms
		}
		threshold = max(threshold, sum/float64(n)*s.vad.AmbientRatio)
	}

	preroll := frames(s.vad.PreRoll)
	ring := make([][]float32, 0, preroll+1)

	wait := frames(opt.Timeout)
	for i := 0; ; i++ {
		if wait > 0 && i >= wait {
			return nil, wake.ErrNoSpeech
		}
		rms, err := read()
		if err != nil {
			return nil, err
		}
		ring = append(ring, append([]float32(nil), frame...))
		if len(ring) > preroll+1 {
			ring = ring[1:]
		}
		if rms > threshold {
			break
		}
	}

	out := make([]float32, 0, SampleRate*3)
	for _, f := range ring {
		out = append(out, f...)
	}

	limit := frames(opt.PhraseLimit)
	pause := max(frames(s.vad.Pause), 1)
	silent := 0
	for n := 1; limit <= 0 || n < limit; n++ {
		rms, err := read()
		if err != nil {
			return nil, err
		}
		out = append(out, frame...)
		if rms > threshold {
			silent = 0
			continue
		}
		if silent++; silent >= pause {
			break
		}
	}
	return out, nil
}

func frames(d time.Duration) int {
	return int(d / frameDur)
}

func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}
