// Package output renders recognition results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rbright/dsclient/internal/engine"
)

// Mode selects how results are rendered.
type Mode int

const (
	ModePlain Mode = iota
	ModeExtended
	ModeJSON
)

// JSONCandidates is the number of candidates requested for JSON output.
const JSONCandidates = 3

// ModeFor picks the render mode; JSON wins over extended.
func ModeFor(extended, jsonOutput bool) Mode {
	switch {
	case jsonOutput:
		return ModeJSON
	case extended:
		return ModeExtended
	default:
		return ModePlain
	}
}

// NumResults is how many candidates a mode needs from the engine. Zero means
// the plain STT call is enough.
func (m Mode) NumResults() int {
	switch m {
	case ModeJSON:
		return JSONCandidates
	case ModeExtended:
		return 1
	default:
		return 0
	}
}

// Extended returns the best candidate's token text.
func Extended(md engine.Metadata) string {
	best, ok := md.Best()
	if !ok {
		return ""
	}
	return strings.TrimSpace(engine.Text(best))
}

type jsonWord struct {
	Word     string  `json:"word"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
}

type jsonMetadata struct {
	Confidence float64 `json:"confidence"`
}

type jsonCandidate struct {
	Metadata jsonMetadata `json:"metadata"`
	Words    []jsonWord   `json:"words"`
}

type jsonResult struct {
	jsonCandidate
	Alternatives []jsonCandidate `json:"alternatives,omitempty"`
}

func toJSONCandidate(t engine.CandidateTranscript) jsonCandidate {
	words := engine.Words(t)
	out := jsonCandidate{
		Metadata: jsonMetadata{Confidence: t.Confidence},
		Words:    make([]jsonWord, 0, len(words)),
	}
	for _, w := range words {
		out.Words = append(out.Words, jsonWord{Word: w.Text, Time: w.StartTime, Duration: w.Duration})
	}
	return out
}

// JSON renders the best candidate with its word timings; further candidates
// are listed under "alternatives".
func JSON(md engine.Metadata) ([]byte, error) {
	var res jsonResult
	res.Words = []jsonWord{}

	for i, t := range md.Transcripts {
		if i == 0 {
			res.jsonCandidate = toJSONCandidate(t)
			continue
		}
		res.Alternatives = append(res.Alternatives, toJSONCandidate(t))
	}

	return json.Marshal(res)
}

// Timing writes the benchmark line for one inference.
func Timing(w io.Writer, elapsed time.Duration) {
	fmt.Fprintf(w, "cpu_time_overall=%.05f\n", elapsed.Seconds())
}
