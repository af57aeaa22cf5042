// Package sinks provides progress.Sink implementations: structured logs,
// Prometheus collectors, and the terminal status line.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/progress"
)

// LogSink emits one structured log line per progress event so an operator
// tailing the run log can watch collection advance.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.URL != "" {
			fields = append(fields,
				zap.String("url", evt.URL),
				zap.Int("url_index", evt.URLIndex),
				zap.Int("url_total", evt.URLTotal),
			)
		}
		if evt.Stage == progress.StageSampleDone {
			fields = append(fields,
				zap.String("source", string(evt.Source)),
				zap.Int("done", evt.Done),
				zap.Int("target", evt.Target),
			)
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
