package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// BeepPlayer renders the click through the machine speaker. The wav asset is
// decoded into a buffer once at construction and re-streamed per click.
type BeepPlayer struct {
	buffer *beep.Buffer
}

// NewBeepPlayer opens and decodes the click asset and initializes the
// speaker.
func NewBeepPlayer(assetPath string) (*BeepPlayer, error) {
	f, err := os.Open(assetPath)
	if err != nil {
		return nil, fmt.Errorf("open click asset: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode click asset: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return &BeepPlayer{buffer: buffer}, nil
}

// Play streams one click. Fire and forget; overlapping clicks mix.
func (p *BeepPlayer) Play() error {
	speaker.Play(p.buffer.Streamer(0, p.buffer.Len()))
	return nil
}

// NopPlayer is the fallback when no audio asset or output device is
// available. Matches the browser behavior of silently dropping clicks when
// playback is blocked.
type NopPlayer struct{}

// Play does nothing.
func (NopPlayer) Play() error { return nil }
