// Package mic reads the default input device through PortAudio.
package mic

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"mist/internal/audio"
)

// Mic is an audio.Source on the default input device at 16 kHz mono.
type Mic struct {
	stream *portaudio.Stream
	buf    []float32
}

func Open() (*Mic, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	buf := make([]float32, audio.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.SampleRate, len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	return &Mic{stream: stream, buf: buf}, nil
}

func (m *Mic) Start() error { return m.stream.Start() }

func (m *Mic) Stop() error { return m.stream.Stop() }

// Read blocks for one frame. Overflows drop samples but are not fatal.
func (m *Mic) Read(frame []float32) error {
	if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return err
	}
	copy(frame, m.buf)
	return nil
}

func (m *Mic) Close() error {
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}
