package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"sync"
	"time"

	"mist/internal/wake"
	"mist/pkg/audioconv"
	"mist/pkg/stt"
)

// Capturer records one phrase.
type Capturer interface {
	Capture(ctx context.Context, opt wake.ListenOptions) ([]float32, error)
}

// Recognizer implements wake.Recognizer over a capturer and a transcriber.
// Listen calls are serialized since they share one microphone.
type Recognizer struct {
	mu  sync.Mutex
	cap Capturer
	tr  stt.Transcriber
	opt stt.Options
}

func NewRecognizer(c Capturer, tr stt.Transcriber, opt stt.Options) *Recognizer {
	return &Recognizer{cap: c, tr: tr, opt: opt}
}

func (r *Recognizer) Listen(ctx context.Context, opt wake.ListenOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pcm, err := r.cap.Capture(ctx, opt)
	if err != nil {
		return "", err
	}
	log.Debug("Recorded", "samples", len(pcm))
	return transcribe(ctx, r.tr, pcm, r.opt)
}

func transcribe(ctx context.Context, tr stt.Transcriber, pcm []float32, opt stt.Options) (string, error) {
	start := time.Now()
	res, err := tr.TranscribePCM(ctx, pcm, opt)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text := stt.Clean(res.Text)
	log.Debug("Transcribed", "text", text, "raw", res.Text, "lang", res.Language, "took", time.Since(start))
	if text == "" {
		return "", wake.ErrUnintelligible
	}
	return text, nil
}

// Replay feeds audio files through the transcriber in order, one file per
// Listen, then reports io.EOF.
type Replay struct {
	mu     sync.Mutex
	files  []string
	tr     stt.Transcriber
	opt    stt.Options
	decode func(ctx context.Context, path string) ([]float32, error)
}

func NewReplay(files []string, tr stt.Transcriber, opt stt.Options) *Replay {
	return &Replay{
		files: append([]string(nil), files...),
		tr:    tr,
		opt:   opt,
		decode: func(ctx context.Context, path string) ([]float32, error) {
			return audioconv.DecodeFile(ctx, path, audioconv.Options{})
		},
	}
}

func (r *Replay) Listen(ctx context.Context, _ wake.ListenOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.files) == 0 {
		return "", io.EOF
	}
	path := r.files[0]
	r.files = r.files[1:]

	log.Info("Replaying", "file", path)
	pcm, err := r.decode(ctx, path)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return "", wake.ErrNoSpeech
	}
	text, err := transcribe(ctx, r.tr, pcm, r.opt)
	if errors.Is(err, wake.ErrUnintelligible) {
		log.Info("Replay produced no words", "file", path)
	}
	return text, err
}
