package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder. All methods are
// empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLogin(provider string, success bool)                            {}
func (n *NoopMetrics) RecordCodeIssued(success bool)                                        {}
func (n *NoopMetrics) RecordGrantExchange(grantType, result string, duration time.Duration) {}
func (n *NoopMetrics) RecordDeviceListing(result string, deviceCount int)                   {}
func (n *NoopMetrics) RecordStoreError(op string)                                           {}
