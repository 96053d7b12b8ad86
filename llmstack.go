// Package llmstack orchestrates a local LLM serving stack: a native
// GPU-resident inference service (OpenAI-compatible API), an optional
// containerized chat UI, and model artifacts pulled from a hub.
package llmstack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/devhyun/llmstack/internal/config"
	"github.com/devhyun/llmstack/internal/container"
	"github.com/devhyun/llmstack/internal/env"
	"github.com/devhyun/llmstack/internal/history"
	histsqlite "github.com/devhyun/llmstack/internal/history/sqlite"
	"github.com/devhyun/llmstack/internal/launcher"
	"github.com/devhyun/llmstack/internal/logger"
	"github.com/devhyun/llmstack/internal/modelgate"
	"github.com/devhyun/llmstack/internal/supervisor"
)

// Re-export core types for external consumers.

type Config = config.Config

type Artifact = modelgate.Artifact

type StackStatus = launcher.StackStatus

type StartupReport = launcher.StartupReport

type StopReport = launcher.StopReport

// LoadConfig reads configuration from the optional TOML file at path.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Orchestrator is the facade over supervisor, launcher, model gate and
// history sink.
type Orchestrator struct {
	cfg      *config.Config
	launcher *launcher.Launcher
	gate     *modelgate.Gate
	hist     history.Sink
	log      *slog.Logger
}

// New wires an Orchestrator from configuration.
func New(cfg *Config) (*Orchestrator, error) {
	log := logger.NewOperator(slog.LevelInfo)

	var hist history.Sink = history.NopSink{}
	if cfg.History.DSN != "" {
		sink, err := histsqlite.New(cfg.History.DSN)
		if err != nil {
			log.Warn("history disabled, sink unavailable", "dsn", cfg.History.DSN, "error", err)
		} else {
			hist = sink
		}
	}

	gate := modelgate.New(cfg.Model.Dir)
	sup := supervisor.New(env.New(), log)
	compose := container.New(cfg.UI.ComposeFile)
	l := launcher.New(cfg, sup, compose, hist, log)

	l.AddPrecondition("inference service directory", func() error {
		if _, err := os.Stat(cfg.Inference.Dir); err != nil {
			return fmt.Errorf("%s missing, run 'llmstack setup' first", cfg.Inference.Dir)
		}
		return nil
	})
	l.AddPrecondition("model artifact", func() error {
		if !gate.Present(cfg.Model.Repo, cfg.Model.Revision) {
			return fmt.Errorf("%s@%s not downloaded, run 'llmstack setup'",
				cfg.Model.Repo, cfg.Model.Revision)
		}
		return nil
	})
	l.AddPrecondition("logs directory", func() error {
		return os.MkdirAll(cfg.LogsDir, 0o750)
	})

	return &Orchestrator{cfg: cfg, launcher: l, gate: gate, hist: hist, log: log}, nil
}

// Start brings the stack up in order. includeUI=false skips the chat UI.
func (o *Orchestrator) Start(ctx context.Context, includeUI bool) (*StartupReport, error) {
	return o.launcher.StartAll(ctx, includeUI)
}

// Stop tears the stack down in reverse order.
func (o *Orchestrator) Stop(ctx context.Context, force bool) (*StopReport, error) {
	return o.launcher.StopAll(ctx, force)
}

// Status reports liveness of both services.
func (o *Orchestrator) Status(ctx context.Context) StackStatus {
	return o.launcher.Status(ctx)
}

// EnsureModel downloads the model revision unless it is already present.
func (o *Orchestrator) EnsureModel(ctx context.Context, repo, revision string) (Artifact, error) {
	already := o.gate.Present(repo, revision)
	art, err := o.gate.EnsureDownloaded(ctx, repo, revision)
	if err != nil {
		return art, err
	}
	if !already {
		e := history.Event{Type: history.EventDownload, Service: "model",
			Detail: repo + "@" + revision, OccurredAt: time.Now()}
		if serr := o.hist.Send(ctx, e); serr != nil {
			o.log.Warn("history sink send failed", "event", "download", "error", serr)
		}
	}
	return art, nil
}

// SetupOptions tune Setup.
type SetupOptions struct {
	SkipModel bool
}

// Setup validates external tooling, creates working directories, and
// downloads the default model unless skipped. Missing optional tooling
// (GPU driver, container runtime) degrades to warnings.
func (o *Orchestrator) Setup(ctx context.Context, opts SetupOptions) error {
	for _, dir := range []string{o.cfg.LogsDir, o.cfg.Model.Dir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	for _, tool := range []string{"nvidia-smi", "docker"} {
		if _, err := exec.LookPath(tool); err != nil {
			o.log.Warn("optional tool not found", "tool", tool)
		}
	}
	if _, err := os.Stat(o.cfg.Inference.Dir); err != nil {
		o.log.Warn("inference service checkout missing",
			"dir", o.cfg.Inference.Dir,
			"hint", "clone TabbyAPI there and install its venv")
	}
	if opts.SkipModel {
		o.log.Info("model download skipped by request")
		return nil
	}
	if _, err := exec.LookPath("huggingface-cli"); err != nil {
		return fmt.Errorf("huggingface-cli not found on PATH: %w", err)
	}
	art, err := o.gate.EnsureDownloaded(ctx, o.cfg.Model.Repo, o.cfg.Model.Revision)
	if err != nil {
		return err
	}
	o.log.Info("model available", "repo", art.Repo, "revision", art.Revision, "dir", art.Dir)
	return nil
}

// Close releases the history sink.
func (o *Orchestrator) Close() error {
	return o.hist.Close()
}
