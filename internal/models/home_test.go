package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeSet_UnmarshalSplitsGuestAccess(t *testing.T) {
	raw := `{
		"home1": {
			"rooms": {
				"livingroom": {
					"products": {
						"3ch1frb214": {
							"devices": {
								"device1": {"name": "TestLight1"}
							}
						}
					}
				}
			}
		},
		"access": {
			"home9": {"owner_id": "owner-uid"}
		}
	}`

	var hs HomeSet
	require.NoError(t, json.Unmarshal([]byte(raw), &hs))

	assert.Len(t, hs.Homes, 1)
	assert.Contains(t, hs.Homes, "home1")
	// The reserved "access" key never shows up as a home
	assert.NotContains(t, hs.Homes, "access")

	require.Len(t, hs.Grants, 1)
	assert.Equal(t, "owner-uid", hs.Grants["home9"].OwnerID)

	home := hs.Homes["home1"]
	device := home.Rooms["livingroom"].Products["3ch1frb214"].Devices["device1"]
	assert.Equal(t, "TestLight1", device.Name)
}

func TestHomeSet_UnmarshalMalformedHomeDecodesEmpty(t *testing.T) {
	raw := `{
		"good": {"rooms": {}},
		"broken": "not an object"
	}`

	var hs HomeSet
	require.NoError(t, json.Unmarshal([]byte(raw), &hs))

	assert.Len(t, hs.Homes, 2)
	assert.Empty(t, hs.Homes["broken"].Rooms)
}

func TestHomeSet_UnmarshalMalformedFieldDecodesNil(t *testing.T) {
	var hs HomeSet
	require.NoError(t, json.Unmarshal([]byte(`"garbage"`), &hs))

	assert.Nil(t, hs.Homes)
	assert.Nil(t, hs.Grants)
}

func TestHomeSet_MarshalRoundTrip(t *testing.T) {
	hs := HomeSet{
		Homes: map[string]Home{
			"home1": {Rooms: map[string]Room{
				"kitchen": {Products: map[string]Product{
					"prod1": {Devices: map[string]Device{
						"device1": {Name: "Kettle"},
					}},
				}},
			}},
		},
		Grants: map[string]GuestGrant{
			"home2": {OwnerID: "other-uid"},
		},
	}

	raw, err := json.Marshal(hs)
	require.NoError(t, err)

	var decoded HomeSet
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, hs.Homes, decoded.Homes)
	assert.Equal(t, hs.Grants, decoded.Grants)
}

func TestHomeSet_SortedIDs(t *testing.T) {
	hs := HomeSet{
		Homes: map[string]Home{
			"zeta": {}, "alpha": {}, "mid": {},
		},
		Grants: map[string]GuestGrant{
			"b": {OwnerID: "x"}, "a": {OwnerID: "y"},
		},
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, hs.SortedHomeIDs())
	assert.Equal(t, []string{"a", "b"}, hs.SortedGrantIDs())
}
