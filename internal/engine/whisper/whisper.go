// Package whisper implements engine.Backend on top of the whisper.cpp Go
// bindings (CGO). libwhisper and whisper.h must be available at link time
// via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	whisperlow "github.com/ggerganov/whisper.cpp/bindings/go"
	"github.com/rbright/dsclient/internal/engine"
)

const (
	bindingsModule   = "github.com/ggerganov/whisper.cpp/bindings/go"
	defaultLanguage  = "en"
	sampleRate       = 16000
	defaultBeamWidth = 5
	// maxBeamWidth is whisper.cpp's decoder limit.
	maxBeamWidth   = 8
	maxPromptBytes = 4096
	autoLanguage   = "auto"
)

var (
	_ engine.Backend = (*Backend)(nil)
	_ engine.Model   = (*Model)(nil)
)

var errModelClosed = errors.New("whisper: model closed")

// Backend loads ggml whisper models.
type Backend struct {
	language  string
	threads   int
	translate bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithLanguage sets the recognition language ("auto" enables detection).
func WithLanguage(lang string) Option {
	return func(b *Backend) { b.language = lang }
}

// WithThreads sets the decoder thread count. Zero keeps the library default.
func WithThreads(n int) Option {
	return func(b *Backend) { b.threads = n }
}

// WithTranslate makes the model translate into English.
func WithTranslate(enabled bool) Option {
	return func(b *Backend) { b.translate = enabled }
}

// New returns a Backend with the given options applied.
func New(opts ...Option) *Backend {
	b := &Backend{language: defaultLanguage}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name identifies the backend in logs.
func (b *Backend) Name() string { return "whisper" }

// Versions reports the whisper.cpp bindings module version linked into the
// running binary.
func (b *Backend) Versions() string {
	return "whisper.cpp bindings: " + bindingsVersion()
}

func bindingsVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != bindingsModule {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		if dep.Version != "" {
			return dep.Version
		}
	}
	return "unknown"
}

// Load reads a ggml model file. The model is closed by Model.Close.
func (b *Backend) Load(ctx context.Context, modelPath string) (engine.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper: model %q: %w", modelPath, err)
	}

	wctx := whisperlow.Whisper_init(modelPath)
	if wctx == nil {
		return nil, fmt.Errorf("whisper: load model %q: unable to load model", modelPath)
	}

	langID := -1
	if b.language != autoLanguage {
		if langID = wctx.Whisper_lang_id(b.language); langID < 0 {
			wctx.Whisper_free()
			return nil, fmt.Errorf("whisper: unknown language %q", b.language)
		}
	}

	threads := b.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	return &Model{
		ctx:       wctx,
		langID:    langID,
		threads:   threads,
		translate: b.translate,
		beamWidth: defaultBeamWidth,
	}, nil
}

// Model is a loaded whisper model. Decoding runs on the model's single
// whisper state, so calls are serialized.
type Model struct {
	ctx       *whisperlow.Context
	langID    int
	threads   int
	translate bool

	mu        sync.Mutex
	beamWidth int
	prompt    string
}

// SampleRate is whisper's fixed input rate.
func (m *Model) SampleRate() int { return sampleRate }

func (m *Model) BeamWidth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beamWidth
}

// SetBeamWidth sets the beam size, capped at whisper's decoder limit. A
// width of 1 decodes greedily.
func (m *Model) SetBeamWidth(width int) error {
	if width <= 0 {
		return fmt.Errorf("whisper: beam width must be > 0, got %d", width)
	}
	m.mu.Lock()
	m.beamWidth = min(width, maxBeamWidth)
	m.mu.Unlock()
	return nil
}

// EnableExternalScorer reads a vocabulary text file and uses it as the
// decoder's initial prompt.
func (m *Model) EnableExternalScorer(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("whisper: open scorer %q: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxPromptBytes))
	if err != nil {
		return fmt.Errorf("whisper: read scorer %q: %w", path, err)
	}
	prompt := strings.Join(strings.Fields(string(raw)), " ")
	if prompt == "" {
		return fmt.Errorf("whisper: scorer %q is empty", path)
	}

	m.mu.Lock()
	m.prompt = prompt
	m.mu.Unlock()
	return nil
}

func (m *Model) DisableExternalScorer() error {
	m.mu.Lock()
	m.prompt = ""
	m.mu.Unlock()
	return nil
}

// SetScorerAlphaBeta is not available: whisper has no external language
// model weights.
func (m *Model) SetScorerAlphaBeta(_, _ float64) error {
	return fmt.Errorf("whisper: lm_alpha/lm_beta: %w", engine.ErrNotSupported)
}

func (m *Model) STT(ctx context.Context, samples []int16) (string, error) {
	md, err := m.STTWithMetadata(ctx, samples, 1)
	if err != nil {
		return "", err
	}
	best, ok := md.Best()
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(engine.Text(best)), nil
}

// STTWithMetadata runs whisper over samples. whisper produces a single
// candidate, so numResults only caps the result at one.
func (m *Model) STTWithMetadata(ctx context.Context, samples []int16, numResults int) (engine.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return engine.Metadata{}, err
	}
	if len(samples) == 0 || numResults <= 0 {
		return engine.Metadata{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return engine.Metadata{}, errModelClosed
	}

	params, err := m.params()
	if err != nil {
		return engine.Metadata{}, err
	}

	encoderBegin := func() bool { return ctx.Err() == nil }
	if err := m.ctx.Whisper_full(params, pcmToFloat32(samples), encoderBegin, nil, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Metadata{}, ctxErr
		}
		return engine.Metadata{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	return engine.Metadata{Transcripts: []engine.CandidateTranscript{candidateFromSegments(m.segments())}}, nil
}

// params builds decode parameters from the current settings. Beam widths
// above 1 select beam search, otherwise decoding is greedy. Callers hold
// m.mu.
func (m *Model) params() (whisperlow.Params, error) {
	params := m.ctx.Whisper_full_default_params(samplingFor(m.beamWidth))
	params.SetBeamSize(m.beamWidth)
	params.SetPrintSpecial(false)
	params.SetPrintProgress(false)
	params.SetPrintRealtime(false)
	params.SetPrintTimestamps(false)
	params.SetNoContext(true)
	params.SetTokenTimestamps(true)
	params.SetTranslate(m.translate)
	params.SetThreads(m.threads)
	if err := params.SetLanguage(m.langID); err != nil {
		return params, fmt.Errorf("whisper: set language: %w", err)
	}
	if m.prompt != "" {
		params.SetInitialPrompt(m.prompt)
	}
	return params, nil
}

func samplingFor(beamWidth int) whisperlow.SamplingStrategy {
	if beamWidth > 1 {
		return whisperlow.SAMPLING_BEAM_SEARCH
	}
	return whisperlow.SAMPLING_GREEDY
}

// segments reads the result of the last Whisper_full call. Callers hold
// m.mu.
func (m *Model) segments() []segment {
	eot := m.ctx.Whisper_token_eot()
	n := m.ctx.Whisper_full_n_segments()
	out := make([]segment, 0, n)
	for i := range n {
		seg := segment{start: whisperTime(m.ctx.Whisper_full_get_segment_t0(i))}
		for j := range m.ctx.Whisper_full_n_tokens(i) {
			data := m.ctx.Whisper_full_get_token_data(i, j)
			seg.tokens = append(seg.tokens, token{
				text:    m.ctx.Whisper_full_get_token_text(i, j),
				p:       m.ctx.Whisper_full_get_token_p(i, j),
				start:   whisperTime(data.T0()),
				special: data.Id() >= eot,
			})
		}
		out = append(out, seg)
	}
	return out
}

func (m *Model) CreateStream(ctx context.Context) (engine.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newStream(m.STT, m.STTWithMetadata), nil
}

func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		m.ctx.Whisper_free()
		m.ctx = nil
	}
	return nil
}
