package whisper

import (
	"math"
	"strings"
	"time"

	"github.com/rbright/dsclient/internal/engine"
)

// timestepDuration is the unit of TokenMetadata.Timestep.
const timestepDuration = 20 * time.Millisecond

// segment and token hold one decoded whisper segment.
type segment struct {
	start  time.Duration
	tokens []token
}

type token struct {
	text    string
	p       float32
	start   time.Duration
	special bool
}

// whisperTime converts whisper's 10 ms timestamps.
func whisperTime(t int64) time.Duration {
	return time.Duration(t) * 10 * time.Millisecond
}

// pcmToFloat32 normalises 16-bit samples to [-1.0, 1.0).
func pcmToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// isSpecialToken matches whisper control tokens such as [_BEG_], [_TT_150]
// and <|endoftext|>.
func isSpecialToken(text string) bool {
	text = strings.TrimSpace(text)
	return (strings.HasPrefix(text, "[_") && strings.HasSuffix(text, "]")) ||
		(strings.HasPrefix(text, "<|") && strings.HasSuffix(text, "|>"))
}

// candidateFromSegments flattens segment tokens into one candidate. The
// leading space of the first token is dropped. Confidence is the summed log
// probability of the kept tokens.
func candidateFromSegments(segments []segment) engine.CandidateTranscript {
	var (
		tokens     []engine.TokenMetadata
		confidence float64
	)

	for _, seg := range segments {
		for _, tok := range seg.tokens {
			if tok.special || tok.text == "" || isSpecialToken(tok.text) {
				continue
			}
			text := tok.text
			if len(tokens) == 0 {
				text = strings.TrimLeft(text, " ")
				if text == "" {
					continue
				}
			}
			start := max(tok.start, seg.start)
			tokens = append(tokens, engine.TokenMetadata{
				Text:      text,
				Timestep:  int(start / timestepDuration),
				StartTime: start.Seconds(),
			})
			if tok.p > 0 {
				confidence += math.Log(float64(tok.p))
			}
		}
	}

	return engine.CandidateTranscript{Tokens: tokens, Confidence: confidence}
}
