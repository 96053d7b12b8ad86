// Package launcher sequences startup and shutdown of the serving stack:
// the mandatory native inference service first, then the optional
// containerized chat UI. Stop runs in reverse order. Failures abort the
// sequence but never roll back services that already came up; the operator
// diagnoses partial state via logs.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/devhyun/llmstack/internal/config"
	"github.com/devhyun/llmstack/internal/container"
	"github.com/devhyun/llmstack/internal/health"
	"github.com/devhyun/llmstack/internal/history"
	"github.com/devhyun/llmstack/internal/logtail"
	"github.com/devhyun/llmstack/internal/supervisor"
)

// InferenceService is the identifier of the mandatory native service.
const InferenceService = "tabbyapi"

const diagnosticTailLines = 15

var ErrPrecondition = errors.New("precondition failed")

// Precondition is a named check that must pass before any mutation.
type Precondition struct {
	Name  string
	Check func() error
}

// StartupReport summarizes a StartAll run.
type StartupReport struct {
	Started []string
	Skipped []string
}

// StopReport summarizes a StopAll run.
type StopReport struct {
	UIStopped bool
	Inference supervisor.Termination
}

// StackStatus is the liveness snapshot reported by Status.
type StackStatus struct {
	Inference   supervisor.Status
	UIAvailable bool // container runtime usable
	UIRunning   bool
}

// Launcher composes supervisor, health poller, container runtime and
// history sink into ordered start/stop sequences.
type Launcher struct {
	cfg     *config.Config
	sup     *supervisor.Supervisor
	compose *container.Compose
	hist    history.Sink
	log     *slog.Logger

	preconditions []Precondition
}

func New(cfg *config.Config, sup *supervisor.Supervisor, compose *container.Compose,
	hist history.Sink, log *slog.Logger) *Launcher {
	if hist == nil {
		hist = history.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{cfg: cfg, sup: sup, compose: compose, hist: hist, log: log}
}

// AddPrecondition registers a check run at the start of StartAll, before
// any side effect.
func (l *Launcher) AddPrecondition(name string, check func() error) {
	l.preconditions = append(l.preconditions, Precondition{Name: name, Check: check})
}

// InferenceSpec is the supervisor spec for the inference service.
func (l *Launcher) InferenceSpec() supervisor.Spec {
	return supervisor.Spec{
		Name:    InferenceService,
		Command: l.cfg.Inference.Command,
		WorkDir: l.cfg.Inference.Dir,
		Env:     l.cfg.Inference.Env,
		PIDFile: filepath.Join(l.cfg.LogsDir, InferenceService+".pid"),
		Log:     l.cfg.Log,
	}
}

// StartAll validates preconditions, then brings up the inference service
// and blocks until it is ready, then does the same for the chat UI unless
// includeUI is false or no container runtime is available (which degrades
// to a warning, leaving the mandatory service running).
func (l *Launcher) StartAll(ctx context.Context, includeUI bool) (*StartupReport, error) {
	for _, p := range l.preconditions {
		if err := p.Check(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPrecondition, p.Name, err)
		}
	}

	report := &StartupReport{}

	spec := l.InferenceSpec()
	proc, err := l.sup.Spawn(spec)
	if err != nil {
		return nil, err
	}
	l.record(ctx, history.EventStart, spec.Name, proc.PID, spec.Command)

	l.log.Info("waiting for inference service",
		"url", l.cfg.InferenceHealthURL(), "timeout", l.cfg.Inference.StartupTimeout)
	outcome := health.WaitReady(ctx, health.Target{
		URL:      l.cfg.InferenceHealthURL(),
		Interval: l.cfg.Inference.PollInterval,
		Timeout:  l.cfg.Inference.StartupTimeout,
	}, health.Options{
		Alive: proc.Alive,
		OnProgress: func(elapsed time.Duration) {
			l.log.Info("still waiting for inference service",
				"elapsed", elapsed.Round(time.Second),
				"log", logtail.LastLine(proc.LogPath))
		},
	})
	switch outcome {
	case health.Ready:
		l.log.Info("inference service ready", "pid", proc.PID, "url", l.cfg.InferenceHealthURL())
		l.record(ctx, history.EventReady, spec.Name, proc.PID, "")
		report.Started = append(report.Started, spec.Name)
	case health.TimedOut:
		return report, l.failWithTail(proc.LogPath,
			fmt.Sprintf("%s not ready within %s", spec.Name, l.cfg.Inference.StartupTimeout))
	case health.ProcessExited:
		return report, l.failWithTail(proc.LogPath,
			fmt.Sprintf("%s exited during startup: %v", spec.Name, proc.ExitErr()))
	default:
		return report, ctx.Err()
	}

	if !includeUI {
		l.log.Info("chat UI skipped by request")
		report.Skipped = append(report.Skipped, l.cfg.UI.Service)
		l.summarize(report)
		return report, nil
	}
	if !l.compose.Available(ctx) {
		l.log.Warn("no container runtime available, skipping chat UI",
			"service", l.cfg.UI.Service)
		report.Skipped = append(report.Skipped, l.cfg.UI.Service)
		l.summarize(report)
		return report, nil
	}

	if err := l.compose.Up(ctx); err != nil {
		return report, fmt.Errorf("start %s: %w", l.cfg.UI.Service, err)
	}
	l.record(ctx, history.EventStart, l.cfg.UI.Service, 0, l.cfg.UI.ComposeFile)

	l.log.Info("waiting for chat UI", "url", l.cfg.UIHealthURL(), "timeout", l.cfg.UI.StartupTimeout)
	outcome = health.WaitReady(ctx, health.Target{
		URL:      l.cfg.UIHealthURL(),
		Interval: l.cfg.UI.PollInterval,
		Timeout:  l.cfg.UI.StartupTimeout,
	}, health.Options{
		Alive: func() bool { return l.compose.Running(ctx, l.cfg.UI.Service) },
		OnProgress: func(elapsed time.Duration) {
			l.log.Info("still waiting for chat UI", "elapsed", elapsed.Round(time.Second))
		},
	})
	switch outcome {
	case health.Ready:
		l.log.Info("chat UI ready", "url", l.cfg.UIHealthURL())
		l.record(ctx, history.EventReady, l.cfg.UI.Service, 0, "")
		report.Started = append(report.Started, l.cfg.UI.Service)
	case health.TimedOut:
		return report, fmt.Errorf("%s not ready within %s", l.cfg.UI.Service, l.cfg.UI.StartupTimeout)
	case health.ProcessExited:
		return report, fmt.Errorf("%s container exited during startup", l.cfg.UI.Service)
	default:
		return report, ctx.Err()
	}

	l.summarize(report)
	return report, nil
}

// StopAll stops the chat UI first, then the inference service, tolerating
// either being already stopped.
func (l *Launcher) StopAll(ctx context.Context, force bool) (*StopReport, error) {
	report := &StopReport{}

	if l.compose.Available(ctx) {
		if err := l.compose.Down(ctx); err != nil {
			l.log.Warn("failed to stop chat UI", "error", err)
		} else {
			report.UIStopped = true
			l.record(ctx, history.EventStop, l.cfg.UI.Service, 0, "")
			l.log.Info("chat UI stopped", "service", l.cfg.UI.Service)
		}
	} else {
		l.log.Debug("no container runtime available, skipping chat UI shutdown")
	}

	spec := l.InferenceSpec()
	term, err := l.sup.Terminate(spec, supervisor.TerminateOptions{
		Force:   force,
		Grace:   supervisor.DefaultGrace,
		Pattern: spec.Command,
	})
	report.Inference = term
	switch term.Outcome {
	case supervisor.OutcomeAlreadyStopped:
		l.log.Info("inference service not running")
	case supervisor.OutcomeStopped, supervisor.OutcomeKilled:
		l.log.Info("inference service stopped", "pid", term.PID, "outcome", term.Outcome.String())
		l.record(ctx, history.EventStop, spec.Name, term.PID, term.Outcome.String())
	}
	return report, err
}

// Status reports liveness of both services without mutating anything
// beyond stale pid record cleanup.
func (l *Launcher) Status(ctx context.Context) StackStatus {
	st := StackStatus{Inference: l.sup.Status(l.InferenceSpec())}
	st.UIAvailable = l.compose.Available(ctx)
	if st.UIAvailable {
		st.UIRunning = l.compose.Running(ctx, l.cfg.UI.Service)
	}
	return st
}

func (l *Launcher) summarize(r *StartupReport) {
	l.log.Info("stack started",
		"started", strings.Join(r.Started, ","),
		"skipped", strings.Join(r.Skipped, ","),
		"inference", fmt.Sprintf("http://127.0.0.1:%d", l.cfg.Inference.Port),
		"ui", fmt.Sprintf("http://127.0.0.1:%d", l.cfg.UI.Port))
}

// failWithTail builds the failure error and surfaces the last log lines
// for diagnosis.
func (l *Launcher) failWithTail(logPath, msg string) error {
	err := errors.New(msg)
	lines, tailErr := logtail.Tail(logPath, diagnosticTailLines)
	if tailErr != nil || len(lines) == 0 {
		return err
	}
	return fmt.Errorf("%w\nlast log lines (%s):\n  %s",
		err, logPath, strings.Join(lines, "\n  "))
}

// record sends a history event; sink failures are logged, never fatal.
func (l *Launcher) record(ctx context.Context, t history.EventType, service string, pid int, detail string) {
	e := history.Event{Type: t, Service: service, PID: pid, Detail: detail, OccurredAt: time.Now()}
	if err := l.hist.Send(ctx, e); err != nil {
		l.log.Warn("history sink send failed", "event", string(t), "service", service, "error", err)
	}
}
