package sinks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ChromeCAB/lighthouse/internal/progress"
	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// TerminalSink re-renders a single status line on a timer: current URL,
// its position in the list, and per-source sample counts. The shared state
// is one snapshot guarded by a mutex; rendering is purely cosmetic and
// carries no correctness weight.
type TerminalSink struct {
	mu       sync.Mutex
	line     string
	current  urlState
	rendered bool

	w      io.Writer
	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
}

type urlState struct {
	url    string
	index  int
	total  int
	remote int
	local  int
	target int
}

func (u urlState) render() string {
	return fmt.Sprintf("[%d/%d] %s  wpt %d/%d  unthrottled %d/%d",
		u.index, u.total, u.url, u.remote, u.target, u.local, u.target)
}

// NewTerminalSink starts the render ticker writing to w.
func NewTerminalSink(w io.Writer, interval time.Duration) *TerminalSink {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	s := &TerminalSink{
		w:      w,
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Consume folds the batch into the current status line. The urlState
// survives across batches so SAMPLE_DONE events update the counts for the
// URL announced by an earlier URL_START.
func (s *TerminalSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.line = s.fold(evt)
	}
	return nil
}

func (s *TerminalSink) fold(evt progress.Event) string {
	switch evt.Stage {
	case progress.StageRunStart:
		return "starting collection"
	case progress.StageURLStart:
		s.current = urlState{url: evt.URL, index: evt.URLIndex, total: evt.URLTotal, target: evt.Target}
		return s.current.render()
	case progress.StageSampleDone:
		if evt.Source == trace.SourceWPT {
			s.current.remote = evt.Done
		} else {
			s.current.local = evt.Done
		}
		return s.current.render()
	case progress.StageURLSkipped:
		return fmt.Sprintf("[%d/%d] %s already collected, skipping", evt.URLIndex, evt.URLTotal, evt.URL)
	case progress.StageURLDone:
		return fmt.Sprintf("[%d/%d] %s done", evt.URLIndex, evt.URLTotal, evt.URL)
	case progress.StageRunDone:
		return "collection complete"
	default:
		return s.line
	}
}

// Close stops the ticker and renders the final line terminated with a
// newline so subsequent output starts cleanly.
func (s *TerminalSink) Close(context.Context) error {
	close(s.stopCh)
	<-s.doneCh
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line != "" {
		fmt.Fprintf(s.w, "\r%s\n", s.line)
	} else if s.rendered {
		fmt.Fprintln(s.w)
	}
	return nil
}

func (s *TerminalSink) loop() {
	defer close(s.doneCh)
	defer s.ticker.Stop()
	for {
		select {
		case <-s.ticker.C:
			s.render()
		case <-s.stopCh:
			return
		}
	}
}

func (s *TerminalSink) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == "" {
		return
	}
	fmt.Fprintf(s.w, "\r%s", s.line)
	s.rendered = true
}
