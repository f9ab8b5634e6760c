package whisper

import (
	"context"
	"errors"

	"github.com/rbright/dsclient/internal/engine"
)

var _ engine.Stream = (*stream)(nil)

var errStreamFreed = errors.New("whisper: stream already finished")

// partialIntervalSamples is the new audio (1 s) an intermediate decode needs
// before it re-runs the model. Smaller increments return the cached partial.
const partialIntervalSamples = sampleRate

type (
	decodeFunc         func(ctx context.Context, samples []int16) (string, error)
	decodeMetadataFunc func(ctx context.Context, samples []int16, numResults int) (engine.Metadata, error)
)

// stream accumulates fed audio. whisper has no incremental decoder, so an
// intermediate decode re-runs the model over everything fed so far.
type stream struct {
	decode         decodeFunc
	decodeMetadata decodeMetadataFunc
	minNewSamples  int

	samples    []int16
	decodedLen int
	partial    string
	freed      bool
}

func newStream(decode decodeFunc, decodeMetadata decodeMetadataFunc) *stream {
	return &stream{
		decode:         decode,
		decodeMetadata: decodeMetadata,
		minNewSamples:  partialIntervalSamples,
	}
}

func (s *stream) FeedAudioContent(samples []int16) {
	if s.freed {
		return
	}
	s.samples = append(s.samples, samples...)
}

func (s *stream) IntermediateDecode(ctx context.Context) (string, error) {
	if s.freed {
		return "", errStreamFreed
	}
	if len(s.samples)-s.decodedLen < s.minNewSamples {
		return s.partial, nil
	}

	text, err := s.decode(ctx, s.samples)
	if err != nil {
		return "", err
	}
	s.partial = text
	s.decodedLen = len(s.samples)
	return text, nil
}

func (s *stream) FinishStream(ctx context.Context) (string, error) {
	if s.freed {
		return "", errStreamFreed
	}
	defer s.Free()
	return s.decode(ctx, s.samples)
}

func (s *stream) FinishStreamWithMetadata(ctx context.Context, numResults int) (engine.Metadata, error) {
	if s.freed {
		return engine.Metadata{}, errStreamFreed
	}
	defer s.Free()
	return s.decodeMetadata(ctx, s.samples, numResults)
}

func (s *stream) Free() {
	s.freed = true
	s.samples = nil
	s.partial = ""
}
