package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInit_Disabled(t *testing.T) {
	m := Init(false)

	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "disabled metrics should be the noop recorder")

	// All recorder methods must be safe to call
	m.RecordLogin("local", true)
	m.RecordCodeIssued(true)
	m.RecordGrantExchange("authorization_code", "success", time.Millisecond)
	m.RecordDeviceListing("success", 3)
	m.RecordStoreError("get_user_record")
}

func TestInit_EnabledIsSingleton(t *testing.T) {
	first := Init(true)
	second := Init(true)

	// Prometheus collectors can only register once per process
	assert.Same(t, first, second)
}
