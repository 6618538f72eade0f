package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceEntry_DeviceID(t *testing.T) {
	entry := DeviceEntry{ID: "device1", Name: "TestLight1", ProductID: "3ch1frb214"}
	assert.Equal(t, "device1_3ch1frb214", entry.DeviceID())
}

func TestNewDeviceListing(t *testing.T) {
	entries := []DeviceEntry{
		{ID: "device1", Name: "TestLight1", ProductID: "3ch1frb214"},
		{ID: "device2", Name: "TestLight2", ProductID: "3ch1frb214"},
	}

	listing := NewDeviceListing(entries)
	assert.Equal(t, []string{"TestLight1", "TestLight2"}, listing.Names)
	assert.Equal(t, []string{"device1_3ch1frb214", "device2_3ch1frb214"}, listing.DeviceIDs)
}

func TestDeviceListing_EmptySerializesAsArrays(t *testing.T) {
	raw, err := json.Marshal(NewDeviceListing(nil))
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":[],"device_id":[]}`, string(raw))
}
