package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/dsclient/internal/audio"
	"github.com/rbright/dsclient/internal/cli"
	"github.com/rbright/dsclient/internal/config"
	"github.com/rbright/dsclient/internal/engine"
	"github.com/rbright/dsclient/internal/engine/whisper"
	"github.com/rbright/dsclient/internal/logging"
	"github.com/rbright/dsclient/internal/output"
	"github.com/rbright/dsclient/internal/version"
)

const binaryName = "dsclient"

// Runner executes one dsclient invocation. Backend and Logger are optional;
// by default the whisper backend and the JSONL runtime log are used.
type Runner struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Backend engine.Backend
}

// Execute runs one invocation with the default backend and logger and
// returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses args and returns the process exit code.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed := cli.Parse(args)

	switch parsed.Outcome {
	case cli.OutcomeHelpRequested:
		if parsed.Err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n\n", parsed.Err)
		}
		r.printHelp()
		return 1
	case cli.OutcomeVersionsRequested:
		fmt.Fprint(r.Stdout, version.Report(r.versionBackend().Versions()))
		return 0
	case cli.OutcomeValidationFailed:
		if errors.Is(parsed.Err, cli.ErrStreamSize) {
			fmt.Fprintln(r.Stdout, parsed.Err.Error())
			return 1
		}
		r.printHelp()
		return 1
	}

	settings, err := config.Load(os.Getenv(config.EnvPath))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if settings.Exists {
		for _, w := range settings.Warnings {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		}
	}

	logger := r.Logger
	if logger == nil {
		level, _ := config.ParseLevel(settings.Config.Log.Level)
		logRuntime, err := logging.New(level)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
			return 1
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
	}
	for _, w := range settings.Warnings {
		logger.Warn("config warning", "message", w.Message)
	}

	backend := r.Backend
	if backend == nil {
		backend = newWhisperBackend(settings.Config.Engine)
	}

	logger.Info("command start",
		"backend", backend.Name(),
		"config", settings.Path,
		"model", parsed.Config.ModelPath,
		"audio", parsed.Config.AudioPath,
		"stream_chunk_size", parsed.Config.StreamChunkSize,
	)

	return r.run(ctx, parsed.Config, backend, logger)
}

func (r Runner) printHelp() {
	fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
	fmt.Fprint(r.Stdout, version.Report(r.versionBackend().Versions()))
}

// versionBackend reports versions without reading settings; version text
// does not depend on them.
func (r Runner) versionBackend() engine.Backend {
	if r.Backend != nil {
		return r.Backend
	}
	return whisper.New()
}

func newWhisperBackend(cfg config.EngineConfig) engine.Backend {
	return whisper.New(
		whisper.WithLanguage(cfg.Language),
		whisper.WithThreads(cfg.Threads),
		whisper.WithTranslate(cfg.Translate),
	)
}

func (r Runner) run(ctx context.Context, cfg cli.Config, backend engine.Backend, logger *slog.Logger) int {
	model, err := backend.Load(ctx, cfg.ModelPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load model: %v\n", err)
		logger.Error("load model failed", "model", cfg.ModelPath, "error", err.Error())
		return 1
	}
	defer func() { _ = model.Close() }()

	if err := r.configureModel(model, cfg, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("configure model failed", "error", err.Error())
		return 1
	}

	files, isDir, err := audio.Collect(cfg.AudioPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	t := transcriber{
		model:     model,
		mode:      output.ModeFor(cfg.ExtendedMetadata, cfg.JSONOutput),
		chunkSize: cfg.StreamChunkSize,
		stdout:    r.Stdout,
	}

	exitCode := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if isDir {
			fmt.Fprintf(r.Stdout, "Running on: %s\n", file)
		}

		res, err := t.transcribeFile(ctx, file)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			logger.Error("transcribe failed", "file", file, "error", err.Error())
			exitCode = 1
			continue
		}
		if cfg.ShowTimes {
			output.Timing(r.Stdout, res.Elapsed)
		}
		logger.Info("transcribe complete",
			"file", file,
			"audio_ms", res.AudioDuration.Milliseconds(),
			"elapsed_ms", res.Elapsed.Milliseconds(),
			"partials", res.Partials,
			"transcript_length", res.TextLength,
		)
	}

	return exitCode
}

// configureModel applies beam width, scorer, and alpha/beta. Settings the
// backend cannot honor become warnings.
func (r Runner) configureModel(model engine.Model, cfg cli.Config, logger *slog.Logger) error {
	if err := model.SetBeamWidth(cfg.BeamWidth); err != nil {
		return fmt.Errorf("set beam width %d: %w", cfg.BeamWidth, err)
	}
	if effective := model.BeamWidth(); effective != cfg.BeamWidth {
		logger.Info("beam width adjusted", "requested", cfg.BeamWidth, "effective", effective)
	}

	if cfg.ScorerPath != "" {
		if err := model.EnableExternalScorer(cfg.ScorerPath); err != nil {
			if !errors.Is(err, engine.ErrNotSupported) {
				return fmt.Errorf("enable external scorer: %w", err)
			}
			r.warn(logger, err)
		}
	}

	if cfg.AlphaBetaSet {
		if err := model.SetScorerAlphaBeta(cfg.LMAlpha, cfg.LMBeta); err != nil {
			if !errors.Is(err, engine.ErrNotSupported) {
				return fmt.Errorf("set scorer alpha and beta: %w", err)
			}
			r.warn(logger, err)
		}
	}

	return nil
}

func (r Runner) warn(logger *slog.Logger, err error) {
	fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	logger.Warn("engine setting ignored", "error", err.Error())
}
