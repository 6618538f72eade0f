package models

import (
	"encoding/json"
	"sort"
)

// The home tree is stored per user at
// users/<uid>/homes/<home_id>/rooms/<room_id>/products/<product_id>/devices/<device_key>.
// The reserved key "access" inside the homes map holds guest-access grants
// (users/<uid>/homes/access/<guest_home_id>/{owner_id}), so HomeSet splits it
// out during decoding instead of treating it as a home.

const guestAccessKey = "access"

// Device is a leaf of the home tree.
type Device struct {
	Name string `json:"name"`
}

// Product groups devices of one product type inside a room.
type Product struct {
	Devices map[string]Device `json:"devices,omitempty"`
}

// Room groups products inside a home.
type Room struct {
	Products map[string]Product `json:"products,omitempty"`
}

// Home is the root of one ownership subtree.
type Home struct {
	Rooms map[string]Room `json:"rooms,omitempty"`
}

// GuestGrant is a non-owning delegation pointer: the holding user may read
// (never mutate) home <guest_home_id> belonging to OwnerID.
type GuestGrant struct {
	OwnerID string `json:"owner_id"`
}

// HomeSet is the decoded homes map of one user: owned homes plus any guest
// grants found under the reserved "access" key.
type HomeSet struct {
	Homes  map[string]Home
	Grants map[string]GuestGrant
}

// UnmarshalJSON decodes the wire-format homes map. Malformed subtrees decode
// to empty nodes rather than failing the whole document: enumeration must
// degrade gracefully, never abort on one broken home.
func (h *HomeSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Whole homes field malformed: treat as no homes at all.
		h.Homes = nil
		h.Grants = nil
		return nil
	}

	h.Homes = make(map[string]Home, len(raw))
	for key, msg := range raw {
		if key == guestAccessKey {
			var grants map[string]GuestGrant
			if err := json.Unmarshal(msg, &grants); err == nil {
				h.Grants = grants
			}
			continue
		}
		var home Home
		if err := json.Unmarshal(msg, &home); err != nil {
			home = Home{}
		}
		h.Homes[key] = home
	}
	return nil
}

// MarshalJSON re-nests guest grants under the reserved "access" key so the
// persisted layout round-trips.
func (h HomeSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h.Homes)+1)
	for id, home := range h.Homes {
		out[id] = home
	}
	if len(h.Grants) > 0 {
		out[guestAccessKey] = h.Grants
	}
	return json.Marshal(out)
}

// SortedHomeIDs returns the owned home ids in lexical order. Traversal order
// is fixed by sorted keys so listings are deterministic across requests.
func (h *HomeSet) SortedHomeIDs() []string {
	ids := make([]string, 0, len(h.Homes))
	for id := range h.Homes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedGrantIDs returns the guest home ids in lexical order.
func (h *HomeSet) SortedGrantIDs() []string {
	ids := make([]string, 0, len(h.Grants))
	for id := range h.Grants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
