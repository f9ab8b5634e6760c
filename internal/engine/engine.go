// Package engine defines the speech-to-text model API driven by dsclient.
//
// A Backend knows how to report its versions and load a Model from a file.
// A Model recognizes whole utterances (STT, STTWithMetadata) or opens a
// Stream that accepts audio incrementally. Samples are 16-bit signed mono
// PCM at Model.SampleRate.
package engine

import (
	"context"
	"errors"
)

// ErrNotSupported is returned for calls a backend cannot honor.
var ErrNotSupported = errors.New("not supported by engine")

// Backend loads models and reports engine version text.
type Backend interface {
	// Name is a short identifier used in logs.
	Name() string

	// Versions returns human-readable version lines for the engine and its
	// runtime. It must not require a loaded model.
	Versions() string

	// Load reads the model at modelPath.
	Load(ctx context.Context, modelPath string) (Model, error)
}

// Model is a loaded acoustic model.
type Model interface {
	SampleRate() int
	BeamWidth() int
	SetBeamWidth(width int) error

	EnableExternalScorer(path string) error
	DisableExternalScorer() error
	SetScorerAlphaBeta(alpha, beta float64) error

	STT(ctx context.Context, samples []int16) (string, error)
	STTWithMetadata(ctx context.Context, samples []int16, numResults int) (Metadata, error)
	CreateStream(ctx context.Context) (Stream, error)

	Close() error
}

// Stream is an incremental recognition session. A Stream is not safe for
// concurrent use. FinishStream and FinishStreamWithMetadata free the stream.
type Stream interface {
	FeedAudioContent(samples []int16)
	IntermediateDecode(ctx context.Context) (string, error)
	FinishStream(ctx context.Context) (string, error)
	FinishStreamWithMetadata(ctx context.Context, numResults int) (Metadata, error)
	Free()
}

// TokenMetadata is one decoded character or sub-word.
type TokenMetadata struct {
	Text      string
	Timestep  int
	StartTime float64 // seconds
}

// CandidateTranscript is one alternative recognition result.
type CandidateTranscript struct {
	Tokens     []TokenMetadata
	Confidence float64
}

// Metadata holds candidate transcripts ordered best first.
type Metadata struct {
	Transcripts []CandidateTranscript
}

// Best returns the first candidate, if any.
func (m Metadata) Best() (CandidateTranscript, bool) {
	if len(m.Transcripts) == 0 {
		return CandidateTranscript{}, false
	}
	return m.Transcripts[0], true
}
