// Package collector implements the orchestration loop that drives both
// trace backends and persists their output.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/archive"
	"github.com/ChromeCAB/lighthouse/internal/progress"
	"github.com/ChromeCAB/lighthouse/internal/retry"
	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// RemoteRunner drives one throttled capture through the remote job API.
type RemoteRunner interface {
	StartJob(ctx context.Context, url string) (trace.JobHandle, error)
	PollUntilDone(ctx context.Context, handle trace.JobHandle) ([]byte, error)
}

// LocalRunner produces one unthrottled capture. Implementations share an
// output path, so the engine never calls Capture concurrently.
type LocalRunner interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// ManifestStore persists the resumption checkpoint.
type ManifestStore interface {
	Load(urls []string) ([]trace.Entry, error)
	Save(entries []trace.Entry) error
}

// TraceSink persists individual trace blobs.
type TraceSink interface {
	SaveTrace(rawURL string, source trace.Source, index int, blob []byte) (string, error)
	Root() string
}

// Config controls one collection run.
type Config struct {
	// URLs is the ordered target list; processed one at a time.
	URLs []string
	// Samples is the per-source sample count for every URL.
	Samples int
	// ArchivePath is where the zipped output directory lands after the
	// run; empty disables archiving.
	ArchivePath string
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("url list must not be empty")
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be > 0")
	}
	return nil
}

// Engine owns the per-URL state machine: skip if already collected,
// otherwise run the remote batch concurrently with the sequential local
// batch, persist everything, and checkpoint the manifest.
type Engine struct {
	cfg     Config
	remote  RemoteRunner
	local   LocalRunner
	store   ManifestStore
	sink    TraceSink
	policy  retry.Policy
	emitter progress.Emitter
	logger  *zap.Logger
}

// NewEngine constructs an Engine. The emitter may be nil when no progress
// reporting is wanted (tests).
func NewEngine(
	cfg Config,
	remote RemoteRunner,
	local LocalRunner,
	store ManifestStore,
	sink TraceSink,
	policy retry.Policy,
	emitter progress.Emitter,
	logger *zap.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		remote:  remote,
		local:   local,
		store:   store,
		sink:    sink,
		policy:  policy,
		emitter: emitter,
		logger:  logger,
	}, nil
}

// Run executes the full collection pass: every URL in order, then the
// archive step. Mid-URL progress is not checkpointed; a crash re-collects
// the interrupted URL from scratch on the next run.
func (e *Engine) Run(ctx context.Context) error {
	runID := progress.UUIDToBytes(uuid.New())
	started := time.Now()

	entries, err := e.store.Load(e.cfg.URLs)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	collected := make(map[string]bool, len(entries))
	position := make(map[string]int, len(entries))
	for i, entry := range entries {
		collected[entry.URL] = entry.Complete(e.cfg.Samples)
		position[entry.URL] = i
	}

	e.emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunStart})

	total := len(e.cfg.URLs)
	for i, target := range e.cfg.URLs {
		index := i + 1
		if collected[target] {
			e.logger.Info("url already collected",
				zap.String("url", target),
				zap.Int("position", index),
				zap.Int("total", total),
			)
			e.emit(progress.Event{
				RunID: runID, TS: time.Now().UTC(), Stage: progress.StageURLSkipped,
				URL: target, URLIndex: index, URLTotal: total,
			})
			continue
		}

		e.emit(progress.Event{
			RunID: runID, TS: time.Now().UTC(), Stage: progress.StageURLStart,
			URL: target, URLIndex: index, URLTotal: total, Target: e.cfg.Samples,
		})
		urlStarted := time.Now()

		entry, err := e.collectURL(ctx, runID, index, target)
		if err != nil {
			return fmt.Errorf("collect %s: %w", target, err)
		}

		// An incomplete entry can linger when the sample count was raised
		// between runs; replace it rather than appending a duplicate.
		if pos, ok := position[target]; ok {
			entries[pos] = entry
		} else {
			position[target] = len(entries)
			entries = append(entries, entry)
		}
		if err := e.store.Save(entries); err != nil {
			return fmt.Errorf("checkpoint manifest after %s: %w", target, err)
		}

		e.emit(progress.Event{
			RunID: runID, TS: time.Now().UTC(), Stage: progress.StageURLDone,
			URL: target, URLIndex: index, URLTotal: total, Dur: time.Since(urlStarted),
		})
	}

	if e.cfg.ArchivePath != "" {
		if err := archive.ZipDir(e.sink.Root(), e.cfg.ArchivePath); err != nil {
			return fmt.Errorf("archive output: %w", err)
		}
		e.logger.Info("output archived", zap.String("path", e.cfg.ArchivePath))
	}

	e.emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunDone, Dur: time.Since(started)})
	return nil
}

// collectURL runs both sample batches for one URL. The remote samples are
// launched concurrently up front; the local samples run strictly one after
// another on the calling goroutine while the remote batch is in flight.
func (e *Engine) collectURL(ctx context.Context, runID [16]byte, urlIndex int, target string) (trace.Entry, error) {
	remote := newSampleBatch()
	var wg sync.WaitGroup
	remoteErrs := make(chan error, e.cfg.Samples)

	for s := 0; s < e.cfg.Samples; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label := fmt.Sprintf("wpt sample for %s", target)
			err := e.policy.Do(ctx, e.logger, label, func(ctx context.Context) error {
				sampleStarted := time.Now()
				handle, err := e.remote.StartJob(ctx, target)
				if err != nil {
					return err
				}
				blob, err := e.remote.PollUntilDone(ctx, handle)
				if err != nil {
					return err
				}
				done := remote.add(blob)
				e.emit(progress.Event{
					RunID: runID, TS: time.Now().UTC(), Stage: progress.StageSampleDone,
					URL: target, URLIndex: urlIndex, URLTotal: len(e.cfg.URLs),
					Source: trace.SourceWPT, Done: done, Target: e.cfg.Samples,
					Dur: time.Since(sampleStarted),
				})
				return nil
			})
			if err != nil {
				remoteErrs <- err
			}
		}()
	}

	local := make([][]byte, 0, e.cfg.Samples)
	var localErr error
	for s := 0; s < e.cfg.Samples; s++ {
		label := fmt.Sprintf("unthrottled sample for %s", target)
		err := e.policy.Do(ctx, e.logger, label, func(ctx context.Context) error {
			sampleStarted := time.Now()
			blob, err := e.local.Capture(ctx, target)
			if err != nil {
				return err
			}
			local = append(local, blob)
			e.emit(progress.Event{
				RunID: runID, TS: time.Now().UTC(), Stage: progress.StageSampleDone,
				URL: target, URLIndex: urlIndex, URLTotal: len(e.cfg.URLs),
				Source: trace.SourceUnthrottled, Done: len(local), Target: e.cfg.Samples,
				Dur: time.Since(sampleStarted),
			})
			return nil
		})
		if err != nil {
			localErr = err
			break
		}
	}

	wg.Wait()
	close(remoteErrs)
	if localErr != nil {
		return trace.Entry{}, localErr
	}
	if err := <-remoteErrs; err != nil {
		return trace.Entry{}, err
	}

	return e.persist(target, remote.snapshot(), local)
}

// persist writes both batches to disk and builds the manifest entry. Only
// full batches reach this point; partial state is never persisted.
func (e *Engine) persist(target string, remote, local [][]byte) (trace.Entry, error) {
	entry := trace.Entry{
		URL:         target,
		WPT:         make([]string, 0, len(remote)),
		Unthrottled: make([]string, 0, len(local)),
	}
	for i, blob := range remote {
		name, err := e.sink.SaveTrace(target, trace.SourceWPT, i+1, blob)
		if err != nil {
			return trace.Entry{}, err
		}
		entry.WPT = append(entry.WPT, name)
	}
	for i, blob := range local {
		name, err := e.sink.SaveTrace(target, trace.SourceUnthrottled, i+1, blob)
		if err != nil {
			return trace.Entry{}, err
		}
		entry.Unthrottled = append(entry.Unthrottled, name)
	}
	return entry, nil
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// sampleBatch accumulates remote blobs in arrival order. Completion
// callbacks run on separate goroutines, so appends are mutex-guarded.
type sampleBatch struct {
	mu    sync.Mutex
	blobs [][]byte
}

func newSampleBatch() *sampleBatch {
	return &sampleBatch{}
}

func (b *sampleBatch) add(blob []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs = append(b.blobs, blob)
	return len(b.blobs)
}

func (b *sampleBatch) snapshot() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.blobs...)
}
