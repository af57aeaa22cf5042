// Package trace defines core types shared across the collection pipeline.
package trace

// Source labels which backend produced a trace sample.
type Source string

// Trace sources persisted in the manifest and encoded into filenames.
const (
	// SourceWPT is the remote performance-testing service running a
	// throttled mobile profile.
	SourceWPT Source = "wpt"
	// SourceUnthrottled is the local page-load analyzer run with no
	// network throttling.
	SourceUnthrottled Source = "unthrottled"
)

// JobHandle identifies one in-flight remote job. It is created by job
// start, consumed by polling, and discarded once the trace is downloaded.
type JobHandle struct {
	TestID    string
	StatusURL string
}

// Entry records the collected samples for a single URL. Each slice is
// either empty (not started) or holds exactly the configured sample count
// of trace filenames; partial entries are never persisted.
type Entry struct {
	URL         string   `json:"url"`
	WPT         []string `json:"wpt"`
	Unthrottled []string `json:"unthrottled"`
}

// Complete reports whether the entry holds a full batch for both sources.
func (e Entry) Complete(samples int) bool {
	return len(e.WPT) == samples && len(e.Unthrottled) == samples
}
