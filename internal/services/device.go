package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/go-homelink/homelink/internal/config"
	"github.com/go-homelink/homelink/internal/metrics"
	"github.com/go-homelink/homelink/internal/models"
	"github.com/go-homelink/homelink/internal/store"
)

// DeviceService is the device-enumeration engine: it resolves the account
// behind a presented access token and flattens that account's home tree into
// a device listing, owned homes first, then any guest-access grants.
type DeviceService struct {
	store   store.Store
	config  *config.Config
	metrics metrics.Recorder
}

// NewDeviceService creates the device-enumeration service.
func NewDeviceService(s store.Store, cfg *config.Config, m metrics.Recorder) *DeviceService {
	return &DeviceService{store: s, config: cfg, metrics: m}
}

// ListDevices resolves accessToken to a user and enumerates every device
// visible to them. A user with no homes gets an empty listing, not an error.
// Broken guest delegations (missing owner or home) are skipped silently:
// partial results beat failing the whole request.
func (d *DeviceService) ListDevices(ctx context.Context, accessToken string) (*models.DeviceListing, error) {
	if accessToken == "" {
		d.metrics.RecordDeviceListing("unauthorized", 0)
		return nil, ErrUnauthorized
	}

	uids, err := d.store.ListUserIDs(ctx)
	if err != nil {
		d.metrics.RecordStoreError("list_user_ids")
		d.metrics.RecordDeviceListing("store_error", 0)
		return nil, err
	}
	if len(uids) == 0 {
		d.metrics.RecordDeviceListing("no_user_data", 0)
		return nil, ErrNoUserData
	}

	uid, rec, err := d.store.FindUserByToken(ctx, models.FieldAccessToken, accessToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			d.metrics.RecordDeviceListing("unauthorized", 0)
			return nil, ErrUnauthorized
		}
		d.metrics.RecordStoreError("find_by_access_token")
		d.metrics.RecordDeviceListing("store_error", 0)
		return nil, err
	}

	if d.config.AccessTokenTTL > 0 && rec.Alexa.AccessTokenExpired(time.Now()) {
		d.metrics.RecordDeviceListing("unauthorized", 0)
		return nil, ErrUnauthorized
	}

	entries := d.enumerate(ctx, uid, rec)
	d.metrics.RecordDeviceListing("success", len(entries))
	return models.NewDeviceListing(entries), nil
}

// enumerate walks the user's own homes, then resolves guest grants against
// the owners' trees. Keys are visited in sorted order so listings are
// deterministic across requests.
func (d *DeviceService) enumerate(ctx context.Context, uid string, rec *models.UserRecord) []models.DeviceEntry {
	var entries []models.DeviceEntry

	for _, homeID := range rec.Homes.SortedHomeIDs() {
		home := rec.Homes.Homes[homeID]
		entries = appendHomeDevices(entries, &home)
	}

	for _, guestHomeID := range rec.Homes.SortedGrantIDs() {
		grant := rec.Homes.Grants[guestHomeID]
		if grant.OwnerID == "" {
			continue
		}
		home, err := d.store.GetHome(ctx, grant.OwnerID, guestHomeID)
		if err != nil {
			// Broken delegation: owner record or home subtree is gone.
			log.Printf(
				"[Device] skipping guest home %s of owner %s for uid=%s: %v",
				guestHomeID, grant.OwnerID, uid, err,
			)
			continue
		}
		entries = appendHomeDevices(entries, home)
	}

	return entries
}

// appendHomeDevices flattens one home subtree. Absent rooms/products/devices
// maps simply contribute nothing.
func appendHomeDevices(entries []models.DeviceEntry, home *models.Home) []models.DeviceEntry {
	for _, roomID := range sortedKeys(home.Rooms) {
		room := home.Rooms[roomID]
		for _, productID := range sortedKeys(room.Products) {
			product := room.Products[productID]
			for _, deviceKey := range sortedKeys(product.Devices) {
				entries = append(entries, models.DeviceEntry{
					ID:        deviceKey,
					Name:      product.Devices[deviceKey].Name,
					ProductID: productID,
				})
			}
		}
	}
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
