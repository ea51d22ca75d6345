package tts

import (
	"context"
	"time"

	"github.com/Mulet-J/desktopeye/errors"
)

// FormatWAV is the only audio format produced.
const FormatWAV = "wav"

// Service is implemented by every speech backend. An empty voice selects
// the backend's configured voice.
type Service interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// Audio is one synthesized clip.
type Audio struct {
	Data       []byte        `json:"-"`
	Format     string        `json:"format"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Voice      string        `json:"voice"`
	Backend    string        `json:"backend"`
}

func loadError(k Kind, err error) error {
	if errors.IsContext(err) {
		return errors.FromContext(err)
	}
	return errors.LoadFailed(k.String(), err)
}
