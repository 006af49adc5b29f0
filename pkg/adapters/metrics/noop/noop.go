// Package noop provides a metrics collector that discards everything.
// It keeps tests and library use free of Prometheus registration.
package noop

import "time"

// Collector implements ports.MetricsCollector with no-ops.
type Collector struct{}

// NewCollector creates a no-op collector.
func NewCollector() *Collector { return &Collector{} }

func (*Collector) RecordPipelineSubmitted(string)                {}
func (*Collector) RecordPipelineCompleted(string, time.Duration) {}
func (*Collector) RecordStageExecuted(string, time.Duration)     {}
func (*Collector) RecordPipelineTimeout()                        {}
func (*Collector) RecordNodeTimeout(string)                      {}
func (*Collector) RecordCancellation(string)                     {}
func (*Collector) RecordNodeLeak(string)                         {}
func (*Collector) RecordQueueReject()                            {}
func (*Collector) SetQueueDepth(int)                             {}
func (*Collector) SetActivePipelines(int)                        {}
func (*Collector) RecordBreakerTransition(string, string, string) {}
func (*Collector) RecordWorkerPoolStatus(int, int, int)          {}
