package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
	}
	switch stage {
	case StageURLStart, StageURLDone, StageURLSkipped:
		evt.URL = "https://example.com"
	case StageSampleDone:
		evt.URL = "https://example.com"
		evt.Source = trace.SourceWPT
	}
	return evt
}

func TestHub_DeliversToAllSinks(t *testing.T) {
	t.Parallel()
	first := &captureSink{}
	second := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, first, second)

	hub.Emit(validEvent(StageRunStart))
	hub.Emit(validEvent(StageSampleDone))
	require.NoError(t, hub.Close(context.Background()))

	require.Len(t, first.snapshot(), 2)
	require.Len(t, second.snapshot(), 2)
	require.True(t, first.closed)
	require.True(t, second.closed)
}

func TestHub_DiscardsInvalidEvents(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{Stage: StageRunStart}) // missing run id and timestamp
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.snapshot())
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewHub(Config{}, &captureSink{})
	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
}

func TestHub_EmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageRunDone))
	require.Empty(t, sink.snapshot())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, validEvent(StageRunStart).Validate())
	require.NoError(t, validEvent(StageSampleDone).Validate())

	missingURL := validEvent(StageURLDone)
	missingURL.URL = ""
	require.Error(t, missingURL.Validate())

	missingSource := validEvent(StageSampleDone)
	missingSource.Source = ""
	require.Error(t, missingSource.Validate())

	unknown := validEvent(StageRunStart)
	unknown.Stage = "BOGUS"
	require.Error(t, unknown.Validate())
}
