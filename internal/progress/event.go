// Package progress defines the event stream emitted by the collection
// engine and the hub that fans it out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageURLStart   Stage = "URL_START"
	StageSampleDone Stage = "SAMPLE_DONE"
	StageURLDone    Stage = "URL_DONE"
	StageURLSkipped Stage = "URL_SKIPPED"
	StageRunDone    Stage = "RUN_DONE"
)

// Event captures a single milestone of a collection run.
type Event struct {
	// RunID uniquely identifies one engine run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL scopes URL and sample events to a target.
	URL string
	// URLIndex is the 1-based position of URL in the configured list.
	URLIndex int
	// URLTotal is the size of the configured list.
	URLTotal int
	// Source labels sample events with the producing backend.
	Source trace.Source
	// Done counts completed samples for Source so far on this URL.
	Done int
	// Target is the configured sample count per source.
	Target int
	// Dur captures execution latency for samples and the whole run.
	Dur time.Duration
	// Note carries low-volume debug context (e.g. retry error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageURLStart, StageURLDone, StageURLSkipped:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	case StageSampleDone:
		if e.URL == "" {
			return errors.New("sample done requires url")
		}
		if e.Source == "" {
			return errors.New("sample done requires source")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for sinks.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
