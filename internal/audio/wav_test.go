package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fmtChunk is the 16-byte PCM fmt chunk payload.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type wavSpec struct {
	format     uint16
	channels   uint16
	rate       uint32
	bits       uint16
	extraFmt   []byte
	preChunks  [][2]string
	samples    []int16
	dataSize   *uint32
	truncateTo int
}

func buildWAV(t *testing.T, spec wavSpec) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString("WAVE")

	for _, chunk := range spec.preChunks {
		writeChunk(&body, chunk[0], []byte(chunk[1]))
	}

	var fmtBuf bytes.Buffer
	blockAlign := spec.channels * spec.bits / 8
	require.NoError(t, binary.Write(&fmtBuf, binary.LittleEndian, fmtChunk{
		AudioFormat:   spec.format,
		NumChannels:   spec.channels,
		SampleRate:    spec.rate,
		ByteRate:      spec.rate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: spec.bits,
	}))
	fmtBuf.Write(spec.extraFmt)
	writeChunk(&body, "fmt ", fmtBuf.Bytes())

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, spec.samples))
	if spec.dataSize != nil {
		body.WriteString("data")
		require.NoError(t, binary.Write(&body, binary.LittleEndian, *spec.dataSize))
		body.Write(data.Bytes())
	} else {
		writeChunk(&body, "data", data.Bytes())
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(body.Len())))
	out.Write(body.Bytes())

	raw := out.Bytes()
	if spec.truncateTo > 0 {
		raw = raw[:spec.truncateTo]
	}
	return raw
}

func writeChunk(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 != 0 {
		buf.WriteByte(0)
	}
}

func monoSpec(samples ...int16) wavSpec {
	return wavSpec{format: 1, channels: 1, rate: 16000, bits: 16, samples: samples}
}

func TestReadWAVMono(t *testing.T) {
	raw := buildWAV(t, monoSpec(1, -2, 300, -32768, 32767))

	clip, err := ReadWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 16000, clip.SampleRate)
	require.Equal(t, 1, clip.Channels)
	require.Equal(t, []int16{1, -2, 300, -32768, 32767}, clip.Samples)
}

func TestReadWAVDownmixesStereo(t *testing.T) {
	spec := wavSpec{format: 1, channels: 2, rate: 16000, bits: 16, samples: []int16{100, 300, -10, -30, 32767, 32767}}

	clip, err := ReadWAV(bytes.NewReader(buildWAV(t, spec)))
	require.NoError(t, err)
	require.Equal(t, 2, clip.Channels)
	require.Equal(t, []int16{200, -20, 32767}, clip.Samples)
}

func TestReadWAVSkipsUnknownChunksAndExtraFmtBytes(t *testing.T) {
	spec := monoSpec(7, 8, 9)
	spec.preChunks = [][2]string{{"LIST", "odd"}, {"junk", "four"}}
	spec.extraFmt = []byte{0, 0}

	clip, err := ReadWAV(bytes.NewReader(buildWAV(t, spec)))
	require.NoError(t, err)
	require.Equal(t, []int16{7, 8, 9}, clip.Samples)
}

func TestReadWAVStreamedDataSize(t *testing.T) {
	for _, size := range []uint32{0xFFFFFFFF, 0, 4096} {
		spec := monoSpec(5, 6, 7, 8)
		spec.dataSize = &size

		clip, err := ReadWAV(bytes.NewReader(buildWAV(t, spec)))
		require.NoError(t, err, size)
		require.Equal(t, []int16{5, 6, 7, 8}, clip.Samples, size)
	}
}

func TestReadWAVTruncatedKeepsWholeFrames(t *testing.T) {
	spec := monoSpec(1, 2, 3)
	full := buildWAV(t, spec)
	spec.truncateTo = len(full) - 1

	clip, err := ReadWAV(bytes.NewReader(buildWAV(t, spec)))
	require.NoError(t, err)
	require.Equal(t, []int16{1, 2}, clip.Samples)
}

func TestReadWAVRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		raw         func(t *testing.T) []byte
		wantErr     string
		unsupported bool
	}{
		{name: "empty", raw: func(*testing.T) []byte { return nil }, wantErr: "RIFF header"},
		{name: "not riff", raw: func(*testing.T) []byte { return []byte("RIFX\x00\x00\x00\x00WAVE") }, wantErr: "format not supported"},
		{name: "not wave", raw: func(*testing.T) []byte { return []byte("RIFF\x00\x00\x00\x00AVI ") }, wantErr: "not a WAVE"},
		{name: "float format", raw: func(t *testing.T) []byte {
			spec := monoSpec(1)
			spec.format = 3
			return buildWAV(t, spec)
		}, wantErr: "PCM", unsupported: true},
		{name: "8 bit", raw: func(t *testing.T) []byte {
			spec := monoSpec(1)
			spec.bits = 8
			return buildWAV(t, spec)
		}, wantErr: "bits per sample", unsupported: true},
		{name: "no data", raw: func(t *testing.T) []byte {
			full := buildWAV(t, monoSpec())
			return full[:len(full)-8]
		}, wantErr: "missing data chunk"},
		{name: "no fmt", raw: func(*testing.T) []byte { return []byte("RIFF\x04\x00\x00\x00WAVE") }, wantErr: "missing fmt chunk"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadWAV(bytes.NewReader(tc.raw(t)))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
			if tc.unsupported {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
			}
		})
	}
}

func TestClipDuration(t *testing.T) {
	require.Equal(t, 1500*time.Millisecond, Clip{SampleRate: 16000, Samples: make([]int16, 24000)}.Duration())
	require.Zero(t, Clip{}.Duration())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, buildWAV(t, monoSpec(4, 5)), 0o600))

	clip, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []int16{4, 5}, clip.Samples)

	bad := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o600))
	_, err = ReadFile(bad)
	require.ErrorContains(t, err, "bad.wav")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.WAV", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.wav"), 0o700))

	files, isDir, err := Collect(dir)
	require.NoError(t, err)
	require.True(t, isDir)
	require.Equal(t, []string{filepath.Join(dir, "a.WAV"), filepath.Join(dir, "b.wav")}, files)

	single := filepath.Join(dir, "b.wav")
	files, isDir, err = Collect(single)
	require.NoError(t, err)
	require.False(t, isDir)
	require.Equal(t, []string{single}, files)

	_, _, err = Collect(filepath.Join(dir, "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = Collect(t.TempDir())
	require.ErrorContains(t, err, "no .wav files")
}
