// Package stt holds the speech-to-text contract shared by the recognizer
// and its backends.
package stt

import (
	"context"
	"regexp"
	"strings"
	"time"
)

type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int // <=0 uses every CPU
	InitialPrompt string
	BeamSize      int // 0 keeps greedy decoding
	Temperature   float32
}

type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Transcriber turns 16 kHz mono PCM in [-1, 1] into text.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
}

// Whisper marks non-speech with bracketed or parenthesized tags such as
// [BLANK_AUDIO] or (wind blowing).
var nonSpeech = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Clean strips non-speech tags and collapses whitespace. A transcript with
// no words left is empty.
func Clean(text string) string {
	text = nonSpeech.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	if strings.Trim(text, " .,!?-…") == "" {
		return ""
	}
	return text
}

// Join concatenates segment texts with single spaces.
func Join(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
