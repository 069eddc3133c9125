// Package audioconv decodes audio files into the 16 kHz mono float32 PCM the
// recognizer expects.
package audioconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const TargetRate = 16000

// Clip is decoded audio: interleaved samples in [-1, 1].
type Clip struct {
	Samples  []float32
	Rate     int
	Channels int
}

// Decoder reads a whole stream of one codec.
type Decoder func(r io.ReadSeeker) (Clip, error)

type Options struct {
	// MaxSamples caps the output length; zero keeps everything.
	MaxSamples int
}

var ErrUnsupported = errors.New("unsupported audio format")

var (
	mu       sync.RWMutex
	decoders = map[string]Decoder{
		"wav":    decodeWAV,
		"mp3":    decodeMP3,
		"vorbis": decodeVorbis,
	}
)

// Register adds or replaces the decoder for a codec name ("opus", ...).
func Register(codec string, d Decoder) {
	mu.Lock()
	defer mu.Unlock()
	decoders[codec] = d
}

// candidates lists the codecs to try for a file extension, in order.
var candidates = map[string][]string{
	".wav":  {"wav"},
	".mp3":  {"mp3"},
	".ogg":  {"vorbis", "opus"},
	".oga":  {"vorbis", "opus"},
	".opus": {"opus"},
}

func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := Decode(ctx, f, filepath.Ext(path), opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pcm, nil
}

// Decode picks codecs from the extension hint, or sniffs the header when the
// hint is unknown, and converts the first one that succeeds.
func Decode(ctx context.Context, r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	codecs, ok := candidates[strings.ToLower(ext)]
	if !ok {
		var err error
		if codecs, err = sniff(r); err != nil {
			return nil, err
		}
	}

	var errs []error
	for _, name := range codecs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mu.RLock()
		dec, ok := decoders[name]
		mu.RUnlock()
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no decoder registered", name))
			continue
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}

		clip, err := dec(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		return ToMono16k(clip, opt), nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(errs...))
}

func sniff(r io.ReadSeeker) ([]string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic, _ := bufio.NewReader(r).Peek(4)

	switch {
	case len(magic) < 3:
	case string(magic) == "RIFF":
		return []string{"wav"}, nil
	case string(magic) == "OggS":
		return []string{"vorbis", "opus"}, nil
	case string(magic[:3]) == "ID3", magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return []string{"mp3"}, nil
	}
	return nil, ErrUnsupported
}

// ToMono16k downmixes and resamples c.
func ToMono16k(c Clip, opt Options) []float32 {
	x := Downmix(c.Samples, c.Channels)
	x = Resample(x, c.Rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
