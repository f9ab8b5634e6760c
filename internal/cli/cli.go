// Package cli parses and validates dsclient command-line flags.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// StreamFrameSize is the engine audio frame (10 ms of 16 kHz mono audio).
// Streaming chunk sizes must be a multiple of it.
const StreamFrameSize = 160

// DefaultBeamWidth is used when --beam_width is not supplied.
const DefaultBeamWidth = 500

var (
	// ErrMissingRequired reports that --model or --audio was not supplied.
	ErrMissingRequired = errors.New("--model and --audio are required")
	// ErrStreamSize reports an invalid --stream value.
	ErrStreamSize = errors.New("Stream buffer size must be multiples of 160")
)

// Outcome tells the caller what to do after parsing.
type Outcome int

const (
	OutcomeProceed Outcome = iota
	OutcomeHelpRequested
	OutcomeVersionsRequested
	OutcomeValidationFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeHelpRequested:
		return "help"
	case OutcomeVersionsRequested:
		return "versions"
	case OutcomeValidationFailed:
		return "validation_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config is the parsed invocation. It is read-only once Parse returns.
type Config struct {
	ModelPath        string
	ScorerPath       string
	AudioPath        string
	BeamWidth        int
	LMAlpha          float64
	LMBeta           float64
	AlphaBetaSet     bool
	ShowTimes        bool
	ExtendedMetadata bool
	JSONOutput       bool
	StreamChunkSize  int
	PrintVersions    bool
}

// Default returns the configuration before any flag is applied.
func Default() Config {
	return Config{BeamWidth: DefaultBeamWidth}
}

// Result bundles the parsed configuration with the parse outcome.
// Err is set for every non-proceed outcome except an explicit --help.
type Result struct {
	Config  Config
	Outcome Outcome
	Err     error
}

// longOptions lists every long flag name for getopt_long prefix matching.
var longOptions = []string{
	"model", "scorer", "audio", "beam_width", "lm_alpha", "lm_beta",
	"t", "extended", "json", "stream", "version", "help",
}

// expandPrefix resolves an unambiguous prefix of a long option to its full
// name, as getopt_long does. Ambiguous and unknown names are returned
// unchanged so the flag set reports them.
func expandPrefix(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	match := ""
	for _, long := range longOptions {
		if long == name {
			return pflag.NormalizedName(name)
		}
		if !strings.HasPrefix(long, name) {
			continue
		}
		if match != "" {
			return pflag.NormalizedName(name)
		}
		match = long
	}
	if match == "" {
		return pflag.NormalizedName(name)
	}
	return pflag.NormalizedName(match)
}

// rawFlags holds the textual values of numeric flags so malformed numbers
// are reported instead of silently becoming zero.
type rawFlags struct {
	beamWidth string
	lmAlpha   string
	lmBeta    string
	stream    string
	help      bool
}

// Parse scans args (without the program name) with getopt_long semantics.
// It performs no I/O.
func Parse(args []string) Result {
	cfg := Default()
	var raw rawFlags

	fs := pflag.NewFlagSet("dsclient", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SetNormalizeFunc(expandPrefix)

	fs.StringVarP(&cfg.ModelPath, "model", "m", "", "path to the model")
	fs.StringVarP(&cfg.ScorerPath, "scorer", "l", "", "path to the external scorer file")
	fs.StringVarP(&cfg.AudioPath, "audio", "a", "", "path to the audio file or directory")
	fs.StringVarP(&raw.beamWidth, "beam_width", "b", "", "decoder beam width")
	fs.StringVarP(&raw.lmAlpha, "lm_alpha", "c", "", "language model alpha")
	fs.StringVarP(&raw.lmBeta, "lm_beta", "d", "", "language model beta")
	fs.BoolVarP(&cfg.ShowTimes, "t", "t", false, "benchmark mode")
	fs.BoolVarP(&cfg.ExtendedMetadata, "extended", "e", false, "extended metadata output")
	fs.BoolVarP(&cfg.JSONOutput, "json", "j", false, "JSON output")
	fs.StringVarP(&raw.stream, "stream", "s", "", "stream chunk size in samples")
	fs.BoolVarP(&cfg.PrintVersions, "version", "v", false, "print versions")
	fs.BoolVarP(&raw.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return Result{Config: cfg, Outcome: OutcomeHelpRequested, Err: err}
	}
	if raw.help {
		return Result{Config: cfg, Outcome: OutcomeHelpRequested}
	}
	if fs.NArg() > 0 {
		return Result{Config: cfg, Outcome: OutcomeHelpRequested, Err: fmt.Errorf("unexpected argument: %s", fs.Arg(0))}
	}

	if err := applyNumeric(fs, raw, &cfg); err != nil {
		return Result{Config: cfg, Outcome: OutcomeHelpRequested, Err: err}
	}

	if cfg.PrintVersions {
		return Result{Config: cfg, Outcome: OutcomeVersionsRequested}
	}
	if err := Validate(cfg); err != nil {
		return Result{Config: cfg, Outcome: OutcomeValidationFailed, Err: err}
	}

	return Result{Config: cfg, Outcome: OutcomeProceed}
}

func applyNumeric(fs *pflag.FlagSet, raw rawFlags, cfg *Config) error {
	var err error

	if fs.Changed("beam_width") {
		if cfg.BeamWidth, err = parseInt("beam_width", raw.beamWidth); err != nil {
			return err
		}
	}
	if fs.Changed("lm_alpha") {
		cfg.AlphaBetaSet = true
		if cfg.LMAlpha, err = parseFloat("lm_alpha", raw.lmAlpha); err != nil {
			return err
		}
	}
	if fs.Changed("lm_beta") {
		cfg.AlphaBetaSet = true
		if cfg.LMBeta, err = parseFloat("lm_beta", raw.lmBeta); err != nil {
			return err
		}
	}
	if fs.Changed("stream") {
		if cfg.StreamChunkSize, err = parseInt("stream", raw.stream); err != nil {
			return err
		}
	}

	return nil
}

func parseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q for --%s", value, name)
	}
	return n, nil
}

func parseFloat(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q for --%s", value, name)
	}
	return f, nil
}

// Validate checks the post-scan invariants: required paths first, then the
// stream chunk size.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ModelPath) == "" || strings.TrimSpace(cfg.AudioPath) == "" {
		return ErrMissingRequired
	}
	if cfg.StreamChunkSize < 0 || cfg.StreamChunkSize%StreamFrameSize != 0 {
		return ErrStreamSize
	}
	return nil
}

// HelpText renders the usage banner for binaryName.
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage: %[1]s --model MODEL [--scorer SCORER] --audio AUDIO [-t] [-e]

Running speech-to-text inference.

Flags:
  -m, --model MODEL             Path to the model file
  -l, --scorer SCORER           Path to the external scorer file
  -a, --audio AUDIO             Path to the audio file (WAV) or a directory of WAV files
  -b, --beam_width BEAM_WIDTH   Value for decoder beam width (int, default %[2]d)
  -c, --lm_alpha LM_ALPHA       Value for language model alpha param (float)
  -d, --lm_beta LM_BETA         Value for language model beta param (float)
  -t                            Run in benchmark mode, output inference time
  -e, --extended                Output string from extended metadata
  -j, --json                    Extended output, shows word timings as JSON
  -s, --stream SIZE             Run in stream mode with SIZE-sample chunks (multiple of %[3]d)
  -h, --help                    Show help
  -v, --version                 Print version and exit
`, binaryName, DefaultBeamWidth, StreamFrameSize)
}
