package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/go-homelink/homelink/internal/models"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps user documents in a map guarded by a RWMutex. Suitable
// for tests and single-instance development; state is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.UserRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.UserRecord)}
}

// clone deep-copies a record through JSON so callers never share memory with
// the store's internal state.
func clone(rec *models.UserRecord) *models.UserRecord {
	raw, err := json.Marshal(rec)
	if err != nil {
		return &models.UserRecord{}
	}
	var out models.UserRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return &models.UserRecord{}
	}
	return &out
}

func (m *MemoryStore) GetUserRecord(ctx context.Context, uid string) (*models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *MemoryStore) PutUserRecord(ctx context.Context, uid string, rec *models.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[uid] = clone(rec)
	return nil
}

func (m *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.users))
	for uid := range m.users {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) FindUserByToken(
	ctx context.Context,
	field, value string,
) (string, *models.UserRecord, error) {
	if value == "" {
		return "", nil, ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Linear scan over all users, same as the production adapter.
	for uid, rec := range m.users {
		if rec.TokenValue(field) == value {
			return uid, clone(rec), nil
		}
	}
	return "", nil, ErrNotFound
}

func (m *MemoryStore) FindUserByEmail(
	ctx context.Context,
	email string,
) (string, *models.UserRecord, error) {
	if email == "" {
		return "", nil, ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for uid, rec := range m.users {
		if rec.Email == email {
			return uid, clone(rec), nil
		}
	}
	return "", nil, ErrNotFound
}

func (m *MemoryStore) UpdateLinkFields(
	ctx context.Context,
	uid string,
	fields map[string]any,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[uid]
	if !ok {
		return ErrNotFound
	}
	applyLinkFields(&rec.Alexa, fields)
	return nil
}

func (m *MemoryStore) CompareAndSwapLink(
	ctx context.Context,
	uid, field, expect string,
	fields map[string]any,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[uid]
	if !ok {
		return ErrNotFound
	}
	if rec.TokenValue(field) != expect {
		return ErrConflict
	}
	applyLinkFields(&rec.Alexa, fields)
	return nil
}

func (m *MemoryStore) GetHome(
	ctx context.Context,
	ownerID, homeID string,
) (*models.Home, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	home, ok := rec.Homes.Homes[homeID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(&models.UserRecord{Homes: models.HomeSet{Homes: map[string]models.Home{homeID: home}}})
	out := cp.Homes.Homes[homeID]
	return &out, nil
}

func (m *MemoryStore) Health(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
