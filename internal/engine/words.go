package engine

import "strings"

// Word is a space-delimited run of tokens with its timing.
type Word struct {
	Text      string
	StartTime float64
	Duration  float64
}

// Text concatenates the candidate's token text.
func Text(t CandidateTranscript) string {
	var b strings.Builder
	for _, tok := range t.Tokens {
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Words groups tokens into words. A word starts at its first token and lasts
// until the start of its last token; space tokens only delimit.
func Words(t CandidateTranscript) []Word {
	var (
		words     []Word
		current   strings.Builder
		startTime float64
		lastStart float64
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		duration := lastStart - startTime
		if duration < 0 {
			duration = 0
		}
		words = append(words, Word{Text: current.String(), StartTime: startTime, Duration: duration})
		current.Reset()
	}

	for _, tok := range t.Tokens {
		for i, part := range strings.Split(tok.Text, " ") {
			if i > 0 {
				flush()
			}
			if part == "" {
				continue
			}
			if current.Len() == 0 {
				startTime = tok.StartTime
			}
			lastStart = tok.StartTime
			current.WriteString(part)
		}
	}
	flush()

	return words
}
