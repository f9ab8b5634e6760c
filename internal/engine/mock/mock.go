// Package mock provides test doubles for the engine interfaces.
//
// Transcripts are scripted per call: Model returns Results in order for STT
// calls, and Stream returns Partials in order for IntermediateDecode.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rbright/dsclient/internal/engine"
)

var (
	_ engine.Backend = (*Backend)(nil)
	_ engine.Model   = (*Model)(nil)
	_ engine.Stream  = (*Stream)(nil)
)

// Backend is a mock engine.Backend.
type Backend struct {
	mu sync.Mutex

	VersionText string
	Model       *Model
	LoadErr     error
	LoadCalls   []string
}

func (b *Backend) Name() string { return "mock" }

func (b *Backend) Versions() string { return b.VersionText }

// Load records modelPath and returns Model or LoadErr.
func (b *Backend) Load(_ context.Context, modelPath string) (engine.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LoadCalls = append(b.LoadCalls, modelPath)
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	if b.Model == nil {
		b.Model = &Model{}
	}
	return b.Model, nil
}

// Model is a mock engine.Model. Zero Rate means 16000.
type Model struct {
	mu sync.Mutex

	Rate         int
	Text         string
	Metadata     engine.Metadata
	STTErr       error
	Partials     []string
	ScorerErr    error
	AlphaBetaErr error

	Beam        int
	ScorerPath  string
	Alpha, Beta float64
	Closed      bool
	STTCalls    int
	Streams     []*Stream
}

func (m *Model) SampleRate() int {
	if m.Rate == 0 {
		return 16000
	}
	return m.Rate
}

func (m *Model) BeamWidth() int { return m.Beam }

// SetBeamWidth rejects non-positive widths.
func (m *Model) SetBeamWidth(width int) error {
	if width <= 0 {
		return fmt.Errorf("mock: beam width must be > 0, got %d", width)
	}
	m.Beam = width
	return nil
}

func (m *Model) EnableExternalScorer(path string) error {
	if m.ScorerErr != nil {
		return m.ScorerErr
	}
	m.ScorerPath = path
	return nil
}

func (m *Model) DisableExternalScorer() error {
	m.ScorerPath = ""
	return nil
}

func (m *Model) SetScorerAlphaBeta(alpha, beta float64) error {
	if m.AlphaBetaErr != nil {
		return m.AlphaBetaErr
	}
	m.Alpha, m.Beta = alpha, beta
	return nil
}

func (m *Model) STT(_ context.Context, _ []int16) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.STTCalls++
	if m.STTErr != nil {
		return "", m.STTErr
	}
	return m.Text, nil
}

func (m *Model) STTWithMetadata(_ context.Context, _ []int16, numResults int) (engine.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.STTCalls++
	if m.STTErr != nil {
		return engine.Metadata{}, m.STTErr
	}
	md := m.Metadata
	if numResults > 0 && len(md.Transcripts) > numResults {
		md.Transcripts = md.Transcripts[:numResults]
	}
	return md, nil
}

func (m *Model) CreateStream(_ context.Context) (engine.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Stream{model: m, partials: append([]string(nil), m.Partials...)}
	m.Streams = append(m.Streams, s)
	return s, nil
}

func (m *Model) Close() error {
	m.Closed = true
	return nil
}

// Stream is a mock engine.Stream recording fed chunk sizes.
type Stream struct {
	model    *Model
	partials []string

	Fed   []int
	Freed bool
}

func (s *Stream) FeedAudioContent(samples []int16) {
	s.Fed = append(s.Fed, len(samples))
}

// IntermediateDecode returns the next scripted partial, repeating the last one.
func (s *Stream) IntermediateDecode(_ context.Context) (string, error) {
	if len(s.partials) == 0 {
		return "", nil
	}
	next := s.partials[0]
	if len(s.partials) > 1 {
		s.partials = s.partials[1:]
	}
	return next, nil
}

func (s *Stream) FinishStream(ctx context.Context) (string, error) {
	defer s.Free()
	return s.model.STT(ctx, nil)
}

func (s *Stream) FinishStreamWithMetadata(ctx context.Context, numResults int) (engine.Metadata, error) {
	defer s.Free()
	return s.model.STTWithMetadata(ctx, nil, numResults)
}

func (s *Stream) Free() { s.Freed = true }

// CharTokens builds per-character tokens spaced 20 ms apart.
func CharTokens(text string) []engine.TokenMetadata {
	tokens := make([]engine.TokenMetadata, 0, len(text))
	for i, r := range strings.Split(text, "") {
		tokens = append(tokens, engine.TokenMetadata{Text: r, Timestep: i, StartTime: float64(i) * 0.02})
	}
	return tokens
}
