// Package health implements blocking readiness waits against HTTP health
// endpoints. The wait is a pure state machine (Waiting -> Ready | TimedOut
// | ProcessExited | Canceled); progress reporting is observational only and
// never alters control flow.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Outcome is the terminal state of a readiness wait.
type Outcome int

const (
	Ready Outcome = iota
	TimedOut
	ProcessExited
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case TimedOut:
		return "timed out"
	case ProcessExited:
		return "process exited"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Target describes one readiness endpoint. Success is any 2xx response;
// when JSONField is set the body must additionally be a JSON object whose
// field equals JSONValue (e.g. status == "healthy").
type Target struct {
	URL       string
	Interval  time.Duration // probe interval
	Timeout   time.Duration // total budget
	JSONField string
	JSONValue string
}

// Options carry the non-essential collaborators of a wait.
type Options struct {
	// Alive, when set, is consulted each cycle; reporting false ends the
	// wait immediately with ProcessExited rather than polling a dead
	// process until timeout.
	Alive func() bool
	// ProgressEvery throttles OnProgress callbacks (default 30s).
	ProgressEvery time.Duration
	OnProgress    func(elapsed time.Duration)
	// Client, when set, replaces the default HTTP client. Each probe is
	// additionally bounded by a per-request context of one poll interval.
	Client *http.Client
}

const defaultProgressEvery = 30 * time.Second

// WaitReady blocks until target reports healthy, the timeout budget is
// spent, the supervised process dies, or ctx is canceled. It returns Ready
// in the first cycle in which the probe succeeds, and never waits more
// than timeout plus one poll interval before reporting TimedOut: probes
// only start before the deadline and each is bounded by one interval.
func WaitReady(ctx context.Context, target Target, opts Options) Outcome {
	if target.Interval <= 0 {
		target.Interval = 5 * time.Second
	}
	progressEvery := opts.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = defaultProgressEvery
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	start := time.Now()
	deadline := start.Add(target.Timeout)
	lastProgress := start

	for {
		if opts.Alive != nil && !opts.Alive() {
			return ProcessExited
		}
		if err := ctx.Err(); err != nil {
			return Canceled
		}
		if probe(ctx, client, target) {
			return Ready
		}
		if time.Now().After(deadline) {
			return TimedOut
		}
		if opts.OnProgress != nil && time.Since(lastProgress) >= progressEvery {
			opts.OnProgress(time.Since(start))
			lastProgress = time.Now()
		}
		select {
		case <-ctx.Done():
			return Canceled
		case <-time.After(target.Interval):
		}
		// Re-check before probing again: a slow endpoint must not push the
		// wait past the deadline plus one probe budget.
		if time.Now().After(deadline) {
			return TimedOut
		}
	}
}

func probe(ctx context.Context, client *http.Client, target Target) bool {
	pctx, cancel := context.WithTimeout(ctx, target.Interval)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	if target.JSONField == "" {
		return true
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return fmt.Sprint(body[target.JSONField]) == target.JSONValue
}
