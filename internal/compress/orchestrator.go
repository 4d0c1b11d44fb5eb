// Package compress drives normalized sessions through a summarization
// provider: discovery, idempotent skip, bounded concurrent dispatch with
// retries, and validated artifact writes.
package compress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/provider"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/specs"
)

// Options configures one compression run.
type Options struct {
	InputDir  string
	OutputDir string

	// Workers bounds concurrent provider calls. The bound respects the
	// provider's rate limits, not CPU parallelism.
	Workers int

	// MaxAttempts caps tries per unit for transient provider errors.
	MaxAttempts int

	// UnitTimeout cuts off a single provider call.
	UnitTimeout time.Duration

	// DryRun builds request payloads without any provider I/O and writes
	// nothing.
	DryRun bool

	PromptTemplate string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.UnitTimeout <= 0 {
		out.UnitTimeout = 2 * time.Minute
	}
	if out.OutputDir == "" {
		out.OutputDir = out.InputDir
	}
	if out.PromptTemplate == "" {
		out.PromptTemplate = provider.DefaultPromptTemplate
	}
	return out
}

// Unit is one discovered candidate session file.
type Unit struct {
	Path    string
	Session *session.Session
}

// UnitError records a unit that reached failed-permanent.
type UnitError struct {
	SessionID string
	Path      string
	Err       error
}

// Summary aggregates terminal states for a whole run. It is complete only
// after every submitted unit finished.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []UnitError
}

// Orchestrator runs the compression pipeline with one provider client.
type Orchestrator struct {
	client provider.Client
	opts   Options

	mu      sync.Mutex
	summary Summary
}

// New creates an orchestrator for the given client and options.
func New(client provider.Client, opts Options) *Orchestrator {
	return &Orchestrator{client: client, opts: opts.withDefaults()}
}

// Discover scans the input directory for normalized session files. A file
// that cannot be parsed as a session is logged and skipped; an unreadable
// input directory is fatal.
func (o *Orchestrator) Discover() ([]Unit, error) {
	entries, err := os.ReadDir(o.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read input directory %s: %w", o.opts.InputDir, err)
	}

	var units []Unit
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".specs.json") {
			continue
		}

		path := filepath.Join(o.opts.InputDir, name)
		sess, err := readSessionFile(path)
		if err != nil {
			internal.LogWarn("compress: skipping %s: %v", path, err)
			continue
		}
		units = append(units, Unit{Path: path, Session: sess})
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}

// Run discovers candidate sessions and drives each through the provider.
// A unit already compressed is skipped without a provider call; a failed
// unit never aborts the rest of the batch. On cancellation, units not yet
// started are reported as skipped.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	units, err := o.Discover()
	if err != nil {
		return nil, err
	}

	// Unit failures are recorded, never propagated, so the group context
	// is not used: only caller cancellation stops dispatch.
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)

	for _, unit := range units {
		unit := unit
		g.Go(func() error {
			o.processUnit(ctx, unit)
			return nil
		})
	}

	_ = g.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	result := o.summary
	return &result, nil
}

func (o *Orchestrator) processUnit(ctx context.Context, unit Unit) {
	if ctx.Err() != nil {
		internal.LogInfo("compress: %s not started (cancelled), skipped", unit.Session.ID)
		o.recordSkip()
		return
	}

	artifactPath := specs.Path(o.opts.OutputDir, unit.Session.ID)
	if _, err := os.Stat(artifactPath); err == nil {
		internal.LogDebug("compress: artifact exists for %s, skipping", unit.Session.ID)
		o.recordSkip()
		return
	}

	if o.opts.DryRun {
		payload, err := o.client.Compress(ctx, unit.Session, o.opts.PromptTemplate, provider.Options{DryRun: true})
		if err != nil {
			o.recordFailure(unit, err)
			return
		}
		internal.LogInfo("compress: dry-run payload for %s:\n%s", unit.Session.ID, payload)
		o.recordSuccess()
		return
	}

	completion, err := o.compressWithRetry(ctx, unit)
	if err != nil {
		o.recordFailure(unit, err)
		return
	}

	artifact, err := specs.Parse(completion, unit.Session, o.client.Name(), o.modelName())
	if err != nil {
		o.recordFailure(unit, &provider.InvalidResponseError{Provider: o.client.Name(), Reason: err.Error()})
		return
	}

	if err := specs.Write(artifactPath, artifact); err != nil {
		o.recordFailure(unit, err)
		return
	}

	internal.LogInfo("compress: wrote %s", artifactPath)
	o.recordSuccess()
}

// compressWithRetry retries transient provider errors (rate limit,
// timeout) with exponential backoff up to MaxAttempts; authentication and
// invalid-response errors fail permanently on the first occurrence.
func (o *Orchestrator) compressWithRetry(ctx context.Context, unit Unit) (string, error) {
	operation := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.UnitTimeout)
		defer cancel()

		completion, err := o.client.Compress(callCtx, unit.Session, o.opts.PromptTemplate, provider.Options{})
		if err != nil {
			if isTransient(err) {
				internal.LogWarn("compress: transient error for %s, will retry: %v", unit.Session.ID, err)
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		return completion, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(o.opts.MaxAttempts)),
	)
}

func isTransient(err error) bool {
	var rateLimit *provider.RateLimitError
	var timeout *provider.TimeoutError
	return errors.As(err, &rateLimit) || errors.As(err, &timeout)
}

func (o *Orchestrator) modelName() string {
	return o.client.Model()
}

func (o *Orchestrator) recordSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Succeeded++
}

func (o *Orchestrator) recordSkip() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Skipped++
}

func (o *Orchestrator) recordFailure(unit Unit, err error) {
	internal.LogError("compress: %s failed permanently: %v", unit.Session.ID, err)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Failed++
	o.summary.Failures = append(o.summary.Failures, UnitError{
		SessionID: unit.Session.ID,
		Path:      unit.Path,
		Err:       err,
	})
}

func readSessionFile(path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("not a normalized session file: %w", err)
	}
	if sess.ID == "" || len(sess.Messages) == 0 {
		return nil, fmt.Errorf("not a normalized session file: missing id or messages")
	}
	return &sess, nil
}
