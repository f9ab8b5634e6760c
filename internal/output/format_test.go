package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rbright/dsclient/internal/engine"
	"github.com/rbright/dsclient/internal/engine/mock"
	"github.com/stretchr/testify/require"
)

func TestModeFor(t *testing.T) {
	require.Equal(t, ModePlain, ModeFor(false, false))
	require.Equal(t, ModeExtended, ModeFor(true, false))
	require.Equal(t, ModeJSON, ModeFor(false, true))
	require.Equal(t, ModeJSON, ModeFor(true, true))

	require.Zero(t, ModePlain.NumResults())
	require.Equal(t, 1, ModeExtended.NumResults())
	require.Equal(t, JSONCandidates, ModeJSON.NumResults())
}

func TestExtended(t *testing.T) {
	require.Empty(t, Extended(engine.Metadata{}))

	md := engine.Metadata{Transcripts: []engine.CandidateTranscript{
		{Tokens: mock.CharTokens(" why hello ")},
		{Tokens: mock.CharTokens("wrong")},
	}}
	require.Equal(t, "why hello", Extended(md))
}

func TestJSONSingleCandidate(t *testing.T) {
	md := engine.Metadata{Transcripts: []engine.CandidateTranscript{
		{Tokens: mock.CharTokens("hi you"), Confidence: -3.5},
	}}

	raw, err := JSON(md)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "alternatives")

	var got struct {
		Metadata struct {
			Confidence float64 `json:"confidence"`
		} `json:"metadata"`
		Words []struct {
			Word     string  `json:"word"`
			Time     float64 `json:"time"`
			Duration float64 `json:"duration"`
		} `json:"words"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, -3.5, got.Metadata.Confidence)
	require.Len(t, got.Words, 2)
	require.Equal(t, "hi", got.Words[0].Word)
	require.Equal(t, "you", got.Words[1].Word)
	require.InDelta(t, 0.06, got.Words[1].Time, 1e-9)
	require.InDelta(t, 0.04, got.Words[1].Duration, 1e-9)
}

func TestJSONAlternatives(t *testing.T) {
	md := engine.Metadata{Transcripts: []engine.CandidateTranscript{
		{Tokens: mock.CharTokens("one"), Confidence: -1},
		{Tokens: mock.CharTokens("won"), Confidence: -2},
		{Tokens: mock.CharTokens("on"), Confidence: -4},
	}}

	raw, err := JSON(md)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	alternatives, ok := got["alternatives"].([]any)
	require.True(t, ok)
	require.Len(t, alternatives, 2)
	second := alternatives[0].(map[string]any)
	require.Equal(t, -2.0, second["metadata"].(map[string]any)["confidence"])
}

func TestJSONEmptyMetadata(t *testing.T) {
	raw, err := JSON(engine.Metadata{})
	require.NoError(t, err)
	require.JSONEq(t, `{"metadata":{"confidence":0},"words":[]}`, string(raw))
}

func TestTiming(t *testing.T) {
	var buf bytes.Buffer
	Timing(&buf, 1250*time.Millisecond)
	require.Equal(t, "cpu_time_overall=1.25000\n", buf.String())
}
