// Package supervisor tracks one long-lived native service per name through
// an on-disk pid record, so that a later invocation of the stop path (a
// separate process) can recover the handle.
//
// There is no cross-process locking around the pid record. Liveness is
// re-checked immediately before the record is created, which leaves a small
// race window when two invocations spawn the same service concurrently.
// Known limitation for a single-operator tool.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/devhyun/llmstack/internal/env"
)

var (
	ErrAlreadyRunning  = errors.New("service already running")
	ErrGracefulTimeout = errors.New("still running after graceful shutdown grace period")
)

const (
	DefaultGrace     = 30 * time.Second
	termPollInterval = 200 * time.Millisecond
	killReapTimeout  = 5 * time.Second
)

// ManagedProcess is the ownership handle returned by Spawn. It is only
// valid inside the invocation that spawned the service; later invocations
// recover the pid from the record on disk.
type ManagedProcess struct {
	Name      string
	PID       int
	LogPath   string // stdout log, used for diagnostics
	StartedAt time.Time

	waitDone chan struct{}
	mu       sync.Mutex
	exitErr  error
}

// Alive reports whether the spawned child is still running.
func (p *ManagedProcess) Alive() bool {
	select {
	case <-p.waitDone:
		return false
	default:
		return true
	}
}

// ExitErr returns the child's wait error once it has exited.
func (p *ManagedProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// Status is a point-in-time liveness snapshot derived from the pid record.
type Status struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid"`
}

// TerminateOptions tune Terminate behavior.
type TerminateOptions struct {
	Force   bool          // escalate to SIGKILL after the grace period
	Grace   time.Duration // wait after SIGTERM before giving up (default 30s)
	Pattern string        // command-line pattern for orphan discovery
}

// Outcome classifies the result of a Terminate call.
type Outcome int

const (
	OutcomeStopped        Outcome = iota // exited within the grace period
	OutcomeKilled                        // required SIGKILL
	OutcomeAlreadyStopped                // no record, or record was stale
	OutcomeOrphanDetected                // pattern matched but not acted on
	OutcomeOrphanKilled                  // pattern matched and force-killed
	OutcomeLeftRunning                   // grace expired without force
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomeKilled:
		return "killed"
	case OutcomeAlreadyStopped:
		return "already stopped"
	case OutcomeOrphanDetected:
		return "orphan detected"
	case OutcomeOrphanKilled:
		return "orphan killed"
	case OutcomeLeftRunning:
		return "left running"
	}
	return "unknown"
}

// Termination reports what Terminate did.
type Termination struct {
	Outcome Outcome
	PID     int
	Orphans []int
}

// Supervisor spawns and terminates supervised services.
type Supervisor struct {
	env *env.Env
	log *slog.Logger
}

func New(e *env.Env, log *slog.Logger) *Supervisor {
	if e == nil {
		e = env.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{env: e, log: log}
}

// Spawn launches the service described by spec, detached in its own process
// group, with stdout/stderr redirected to the spec's log destinations, and
// records its pid. It returns without waiting for readiness.
func (s *Supervisor) Spawn(spec Spec) (*ManagedProcess, error) {
	if pid, err := ReadPIDFile(spec.PIDFile); err == nil {
		if alive(pid) {
			return nil, fmt.Errorf("%s (pid %d): %w", spec.Name, pid, ErrAlreadyRunning)
		}
		// stale record from a previous run
		s.log.Debug("removing stale pid record", "service", spec.Name, "pid", pid)
		RemovePIDFile(spec.PIDFile)
	}

	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	cmd.Env = s.env.Merge(spec.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var closers []io.Closer
	outW, errW, _ := spec.Log.Writers(spec.Name)
	if outW == nil || errW == nil {
		// On open failure the fields stay nil and exec opens the null
		// device itself.
		if devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0); err == nil {
			if outW == nil {
				cmd.Stdout = devNull
			}
			if errW == nil {
				cmd.Stderr = devNull
			}
			closers = append(closers, devNull)
		}
	}
	if outW != nil {
		cmd.Stdout = outW
		closers = append(closers, outW)
	}
	if errW != nil {
		cmd.Stderr = errW
		closers = append(closers, errW)
	}

	if err := cmd.Start(); err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	pid := cmd.Process.Pid
	if err := WritePIDFile(spec.PIDFile, pid); err != nil {
		s.log.Warn("failed to write pid record", "service", spec.Name, "pid", pid, "error", err)
	}

	p := &ManagedProcess{
		Name:      spec.Name,
		PID:       pid,
		LogPath:   spec.Log.StdoutFile(spec.Name),
		StartedAt: time.Now(),
		waitDone:  make(chan struct{}),
	}
	// Reap the child if it dies while this invocation is still alive, so
	// Alive flips without leaving a zombie behind.
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.exitErr = err
		p.mu.Unlock()
		for _, c := range closers {
			_ = c.Close()
		}
		close(p.waitDone)
	}()

	s.log.Info("service spawned", "service", spec.Name, "pid", pid)
	return p, nil
}

// Terminate stops the service recorded for spec. With no pid record it
// attempts orphan discovery by command-line pattern and only acts on a
// match when Force is set. With a record it sends SIGTERM to the process
// group, polls liveness up to the grace period, and escalates to SIGKILL
// only when Force is set. Stale records are always cleaned up.
func (s *Supervisor) Terminate(spec Spec, opts TerminateOptions) (Termination, error) {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}

	pid, err := ReadPIDFile(spec.PIDFile)
	if err != nil {
		orphans := findByPattern(opts.Pattern)
		if len(orphans) == 0 {
			return Termination{Outcome: OutcomeAlreadyStopped}, nil
		}
		if !opts.Force {
			s.log.Warn("no pid record but matching processes found; use --force to kill",
				"service", spec.Name, "pids", orphans)
			return Termination{Outcome: OutcomeOrphanDetected, Orphans: orphans}, nil
		}
		for _, opid := range orphans {
			_ = signalGroup(opid, syscall.SIGKILL)
		}
		s.log.Info("killed orphan processes", "service", spec.Name, "pids", orphans)
		return Termination{Outcome: OutcomeOrphanKilled, Orphans: orphans}, nil
	}

	if !alive(pid) {
		RemovePIDFile(spec.PIDFile)
		return Termination{Outcome: OutcomeAlreadyStopped, PID: pid}, nil
	}

	s.log.Info("stopping service", "service", spec.Name, "pid", pid)
	_ = signalGroup(pid, syscall.SIGTERM)
	if waitDead(pid, opts.Grace) {
		RemovePIDFile(spec.PIDFile)
		return Termination{Outcome: OutcomeStopped, PID: pid}, nil
	}

	if !opts.Force {
		return Termination{Outcome: OutcomeLeftRunning, PID: pid},
			fmt.Errorf("%s (pid %d): %w", spec.Name, pid, ErrGracefulTimeout)
	}

	s.log.Warn("grace period expired, sending SIGKILL", "service", spec.Name, "pid", pid)
	_ = signalGroup(pid, syscall.SIGKILL)
	if !waitDead(pid, killReapTimeout) {
		return Termination{Outcome: OutcomeLeftRunning, PID: pid},
			fmt.Errorf("%s (pid %d): survives SIGKILL", spec.Name, pid)
	}
	RemovePIDFile(spec.PIDFile)
	return Termination{Outcome: OutcomeKilled, PID: pid}, nil
}

// Status derives liveness from the pid record, cleaning up stale records.
func (s *Supervisor) Status(spec Spec) Status {
	st := Status{Name: spec.Name}
	pid, err := ReadPIDFile(spec.PIDFile)
	if err != nil {
		return st
	}
	st.PID = pid
	if alive(pid) {
		st.Running = true
	} else {
		RemovePIDFile(spec.PIDFile)
		st.PID = 0
	}
	return st
}

// waitDead polls liveness until pid is gone or the budget expires.
func waitDead(pid int, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for {
		if !alive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(termPollInterval)
	}
}
