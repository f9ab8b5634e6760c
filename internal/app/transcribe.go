package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rbright/dsclient/internal/audio"
	"github.com/rbright/dsclient/internal/engine"
	"github.com/rbright/dsclient/internal/output"
)

type transcriber struct {
	model     engine.Model
	mode      output.Mode
	chunkSize int
	stdout    io.Writer
}

type fileResult struct {
	AudioDuration time.Duration
	Elapsed       time.Duration
	Partials      int
	TextLength    int
}

func (t transcriber) transcribeFile(ctx context.Context, path string) (fileResult, error) {
	clip, err := audio.ReadFile(path)
	if err != nil {
		return fileResult{}, err
	}
	if clip.SampleRate != t.model.SampleRate() {
		return fileResult{}, fmt.Errorf("%s: sample rate %d Hz does not match model rate %d Hz", path, clip.SampleRate, t.model.SampleRate())
	}

	res := fileResult{AudioDuration: clip.Duration()}
	start := time.Now()

	var (
		text     string
		metadata engine.Metadata
	)
	if t.chunkSize > 0 {
		text, metadata, res.Partials, err = t.stream(ctx, clip.Samples)
	} else {
		text, metadata, err = t.batch(ctx, clip.Samples)
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	rendered, err := t.render(text, metadata)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	res.TextLength = len(rendered)
	fmt.Fprintln(t.stdout, rendered)

	return res, nil
}

func (t transcriber) batch(ctx context.Context, samples []int16) (string, engine.Metadata, error) {
	if n := t.mode.NumResults(); n > 0 {
		md, err := t.model.STTWithMetadata(ctx, samples, n)
		return "", md, err
	}
	text, err := t.model.STT(ctx, samples)
	return text, engine.Metadata{}, err
}

// stream feeds chunkSize-sample chunks and prints every intermediate decode
// that differs from the previous one.
func (t transcriber) stream(ctx context.Context, samples []int16) (string, engine.Metadata, int, error) {
	s, err := t.model.CreateStream(ctx)
	if err != nil {
		return "", engine.Metadata{}, 0, fmt.Errorf("create stream: %w", err)
	}

	var (
		last     string
		printed  int
		finished bool
	)
	defer func() {
		if !finished {
			s.Free()
		}
	}()

	for off := 0; off < len(samples); off += t.chunkSize {
		if err := ctx.Err(); err != nil {
			return "", engine.Metadata{}, printed, err
		}
		end := min(off+t.chunkSize, len(samples))
		s.FeedAudioContent(samples[off:end])

		partial, err := s.IntermediateDecode(ctx)
		if err != nil {
			return "", engine.Metadata{}, printed, fmt.Errorf("intermediate decode: %w", err)
		}
		if printed == 0 || partial != last {
			fmt.Fprintln(t.stdout, partial)
			last = partial
			printed++
		}
	}

	finished = true
	if n := t.mode.NumResults(); n > 0 {
		md, err := s.FinishStreamWithMetadata(ctx, n)
		return "", md, printed, err
	}
	text, err := s.FinishStream(ctx)
	return text, engine.Metadata{}, printed, err
}

func (t transcriber) render(text string, md engine.Metadata) (string, error) {
	switch t.mode {
	case output.ModeJSON:
		raw, err := output.JSON(md)
		if err != nil {
			return "", fmt.Errorf("render json: %w", err)
		}
		return string(raw), nil
	case output.ModeExtended:
		return output.Extended(md), nil
	default:
		return text, nil
	}
}
