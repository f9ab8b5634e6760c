// Package audio reads WAV input for recognition.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat reports WAV content other than 16-bit integer PCM.
var ErrUnsupportedFormat = errors.New("unsupported WAV format")

// Clip is decoded mono PCM audio.
type Clip struct {
	SampleRate int
	Channels   int // channel count in the source file
	Samples    []int16
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// pcmReadSamples is the PCM buffer size used per decoder read.
const pcmReadSamples = 8192

// ReadWAV decodes a RIFF/WAVE stream of 16-bit PCM. Multi-channel audio is
// down-mixed to mono by averaging. Unknown chunks are skipped.
func ReadWAV(r io.ReadSeeker) (Clip, error) {
	header := riff.New(r)
	if err := header.ParseHeaders(); err != nil {
		return Clip{}, fmt.Errorf("read RIFF header: %w", err)
	}
	if header.Format != riff.WavFormatID {
		return Clip{}, fmt.Errorf("not a WAVE file (format %q)", header.Format[:])
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Clip{}, fmt.Errorf("rewind: %w", err)
	}

	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Clip{}, fmt.Errorf("read fmt chunk: %w", err)
	}
	if dec.NumChans == 0 {
		return Clip{}, errors.New("missing fmt chunk")
	}
	if err := checkFormat(dec); err != nil {
		return Clip{}, err
	}

	if err := dec.FwdToPCM(); err != nil {
		return Clip{}, fmt.Errorf("missing data chunk: %w", err)
	}
	// Streamed WAVs carry a 0 or 0xFFFFFFFF data size; the decoder rounds the
	// latter up to 0. Either way the samples run to the end of the input.
	if dec.PCMSize == 0 {
		dec.PCMChunk.R = r
	}

	channels := int(dec.NumChans)
	pcm, err := readPCM(dec, channels)
	if err != nil {
		return Clip{}, err
	}

	return Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		Samples:    downmix(pcm, channels),
	}, nil
}

func checkFormat(dec *wav.Decoder) error {
	if dec.WavAudioFormat != 1 {
		return fmt.Errorf("%w: audio format %d (only PCM=1)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if dec.BitDepth != 16 {
		return fmt.Errorf("%w: %d bits per sample (only 16)", ErrUnsupportedFormat, dec.BitDepth)
	}
	if dec.SampleRate == 0 {
		return fmt.Errorf("%w: zero sample rate", ErrUnsupportedFormat)
	}
	return nil
}

// readPCM drains the data chunk. A trailing partial sample is dropped by
// the decoder.
func readPCM(dec *wav.Decoder, channels int) ([]int, error) {
	buf := &audio.IntBuffer{Data: make([]int, pcmReadSamples*channels)}

	var pcm []int
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("read PCM data: %w", err)
		}
		if n == 0 {
			return pcm, nil
		}
		pcm = append(pcm, buf.Data[:n]...)
	}
}

// downmix averages interleaved channels into mono, keeping whole frames only.
func downmix(pcm []int, channels int) []int16 {
	frames := len(pcm) / channels
	samples := make([]int16, frames)
	for i := range frames {
		var sum int
		for _, v := range pcm[i*channels : (i+1)*channels] {
			sum += v
		}
		samples[i] = int16(sum / channels)
	}
	return samples
}

// ReadFile opens and decodes a WAV file.
func ReadFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()

	clip, err := ReadWAV(f)
	if err != nil {
		return Clip{}, fmt.Errorf("decode %q: %w", path, err)
	}
	return clip, nil
}
