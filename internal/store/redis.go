package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-homelink/homelink/internal/models"
)

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// How many times an optimistic transaction retries before giving up. Watch
// only fails when another writer touched the same user document, so a couple
// of retries is plenty.
const casMaxRetries = 3

// RedisStore persists one JSON document per user id:
//
//	<ns>:user:<uid>  -> UserRecord JSON
//	<ns>:uids        -> set of known user ids
//
// Link-field updates run as WATCH/MULTI transactions on the user key, which
// gives CompareAndSwapLink its atomicity.
type RedisStore struct {
	client    *redis.Client
	namespace string
	timeout   time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, namespace string, timeout time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	if namespace == "" {
		namespace = "homelink"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &RedisStore{client: client, namespace: namespace, timeout: timeout}, nil
}

func (r *RedisStore) userKey(uid string) string {
	return r.namespace + ":user:" + uid
}

func (r *RedisStore) uidsKey() string {
	return r.namespace + ":uids"
}

// withTimeout bounds every store call; the services never talk to Redis with
// an unbounded context.
func (r *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func decodeRecord(raw string) (*models.UserRecord, error) {
	var rec models.UserRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("corrupt user document: %w", err)
	}
	return &rec, nil
}

func (r *RedisStore) GetUserRecord(ctx context.Context, uid string) (*models.UserRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	raw, err := r.client.Get(ctx, r.userKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return decodeRecord(raw)
}

func (r *RedisStore) PutUserRecord(ctx context.Context, uid string, rec *models.UserRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode user document: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.userKey(uid), raw, 0)
		pipe.SAdd(ctx, r.uidsKey(), uid)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisStore) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.uidsKey()).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	sort.Strings(ids)
	return ids, nil
}

// FindUserByToken scans every user document for a matching link field. One
// MGET keeps it to a single round trip, but it is still O(n) over users.
func (r *RedisStore) FindUserByToken(
	ctx context.Context,
	field, value string,
) (string, *models.UserRecord, error) {
	return r.scan(ctx, func(rec *models.UserRecord) bool {
		return value != "" && rec.TokenValue(field) == value
	})
}

func (r *RedisStore) FindUserByEmail(
	ctx context.Context,
	email string,
) (string, *models.UserRecord, error) {
	return r.scan(ctx, func(rec *models.UserRecord) bool {
		return email != "" && rec.Email == email
	})
}

func (r *RedisStore) scan(
	ctx context.Context,
	match func(*models.UserRecord) bool,
) (string, *models.UserRecord, error) {
	uids, err := r.ListUserIDs(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(uids) == 0 {
		return "", nil, ErrNotFound
	}

	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = r.userKey(uid)
	}

	mgetCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	raws, err := r.client.MGet(mgetCtx, keys...).Result()
	if err != nil {
		return "", nil, unavailable(err)
	}

	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // uid in the set but document missing
		}
		rec, err := decodeRecord(s)
		if err != nil {
			continue
		}
		if match(rec) {
			return uids[i], rec, nil
		}
	}
	return "", nil, ErrNotFound
}

func (r *RedisStore) UpdateLinkFields(
	ctx context.Context,
	uid string,
	fields map[string]any,
) error {
	return r.transactLink(ctx, uid, "", "", fields)
}

func (r *RedisStore) CompareAndSwapLink(
	ctx context.Context,
	uid, field, expect string,
	fields map[string]any,
) error {
	return r.transactLink(ctx, uid, field, expect, fields)
}

// transactLink merges fields into the alexa record inside a WATCH/MULTI
// transaction. When field is non-empty the merge only happens if the guarded
// field still equals expect; a failed guard is ErrConflict.
func (r *RedisStore) transactLink(
	ctx context.Context,
	uid, field, expect string,
	fields map[string]any,
) error {
	key := r.userKey(uid)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		rec, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		if field != "" && rec.TokenValue(field) != expect {
			return ErrConflict
		}

		applyLinkFields(&rec.Alexa, fields)
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	for i := 0; i < casMaxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue // another writer touched the document, retry
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
			return err
		default:
			return unavailable(err)
		}
	}
	return ErrConflict
}

func (r *RedisStore) GetHome(
	ctx context.Context,
	ownerID, homeID string,
) (*models.Home, error) {
	rec, err := r.GetUserRecord(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	home, ok := rec.Homes.Homes[homeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &home, nil
}

func (r *RedisStore) Health(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
