package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch bounds each SCAN cursor step during a purge sweep.
const scanBatch = 200

// RedisStore is the cluster-ready Checkpoint Store. It
// works unmodified against a single node (redis.NewClient) or a cluster
// (redis.NewClusterClient) because both satisfy redis.UniversalClient,
// and every operation here is single-key (get/set/del/zadd/zrange),
// so no cluster node ever needs a cross-key transaction.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store. prefix is prepended to every key
//; ttl of 0 disables
// expiry.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Ping probes connectivity. This is a soft check at
// startup: a failure here is logged by the caller, not fatal.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) checkpointKey(threadID, cid string) string {
	return fmt.Sprintf("%scheckpoint:%s:%s", s.prefix, threadID, cid)
}

func (s *RedisStore) checkpointPattern(threadID string) string {
	return fmt.Sprintf("%scheckpoint:%s:*", s.prefix, threadID)
}

func (s *RedisStore) indexKey(threadID string) string {
	return fmt.Sprintf("%slist:%s", s.prefix, threadID)
}

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

func (s *RedisStore) Put(ctx context.Context, threadID string, blob []byte) (string, error) {
	cid := newCheckpointID()
	now := time.Now()
	score := float64(now.UnixNano())

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.checkpointKey(threadID, cid), blob, 0)
	pipe.ZAdd(ctx, s.indexKey(threadID), redis.Z{Score: score, Member: cid})
	pipe.HSet(ctx, s.threadKey(threadID), map[string]interface{}{
		"latest_checkpoint": cid,
		"updated_at":        now.Format(time.RFC3339Nano),
	})
	if s.ttl > 0 {
		// Refresh TTL on all three keys on every write.
		pipe.Expire(ctx, s.checkpointKey(threadID, cid), s.ttl)
		pipe.Expire(ctx, s.indexKey(threadID), s.ttl)
		pipe.Expire(ctx, s.threadKey(threadID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("checkpoint put: %w", err)
	}

	return cid, nil
}

func (s *RedisStore) GetLatest(ctx context.Context, threadID string) ([]byte, bool, error) {
	cid, err := s.client.HGet(ctx, s.threadKey(threadID), "latest_checkpoint").Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("read thread summary: %w", err)
	}

	if cid == "" {
		// No thread-summary pointer — fall back to the highest-scored
		// index entry.
		ids, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(threadID), 0, 0).Result()
		if err != nil {
			return nil, false, fmt.Errorf("read checkpoint index: %w", err)
		}
		if len(ids) == 0 {
			return nil, false, nil
		}
		cid = fmt.Sprint(ids[0].Member)
	}

	blob, err := s.client.Get(ctx, s.checkpointKey(threadID, cid)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}

	return blob, true, nil
}

func (s *RedisStore) List(ctx context.Context, threadID string, before time.Time, limit int) ([]Metadata, error) {
	max := "+inf"
	if !before.IsZero() {
		max = fmt.Sprintf("(%d", before.UnixNano())
	}

	opt := &redis.ZRangeBy{Min: "-inf", Max: max}
	if limit > 0 {
		opt.Offset = 0
		opt.Count = int64(limit)
	}

	ids, err := s.client.ZRevRangeByScoreWithScores(ctx, s.indexKey(threadID), opt).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	out := make([]Metadata, 0, len(ids))
	for _, z := range ids {
		out = append(out, Metadata{
			ThreadID:     threadID,
			CheckpointID: fmt.Sprint(z.Member),
			CreatedAt:    time.Unix(0, int64(z.Score)),
		})
	}
	return out, nil
}

// Purge removes every checkpoint, index, and thread-summary key for
// threadID. It combines an index walk with a SCAN-based pattern sweep
// because a crash between the checkpoint SET and the index ZADD can
// leave checkpoint records with no index entry; those orphans are only
// reachable via the pattern scan.
func (s *RedisStore) Purge(ctx context.Context, threadID string) (int, error) {
	seen := make(map[string]struct{})

	ids, err := s.client.ZRange(ctx, s.indexKey(threadID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read checkpoint index for purge: %w", err)
	}
	for _, cid := range ids {
		seen[s.checkpointKey(threadID, cid)] = struct{}{}
	}

	scanned, err := s.scanKeys(ctx, s.checkpointPattern(threadID))
	if err != nil {
		return 0, fmt.Errorf("scan checkpoint keys for purge: %w", err)
	}
	for _, k := range scanned {
		seen[k] = struct{}{}
	}

	keysToDelete := make([]string, 0, len(seen)+2)
	for k := range seen {
		keysToDelete = append(keysToDelete, k)
	}
	keysToDelete = append(keysToDelete, s.indexKey(threadID), s.threadKey(threadID))

	if len(keysToDelete) == 0 {
		return 0, nil
	}

	// One DEL per key: the keys hash to different cluster slots.
	var n int64
	for _, k := range keysToDelete {
		deleted, err := s.client.Del(ctx, k).Result()
		n += deleted
		if err != nil {
			return int(n), fmt.Errorf("delete purged keys: %w", err)
		}
	}
	return int(n), nil
}

// scanKeys walks every key matching pattern. Against a single node this
// is one SCAN cursor loop; against a *redis.ClusterClient a SCAN cursor
// only walks the node the command happens to route to, so every master
// shard must be swept independently via ForEachMaster — the same
// per-node iteration the Python original's RedisCheckpointer._scan_keys
// does over get_primaries()/get_nodes() when its client is a
// RedisCluster.
func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	cluster, ok := s.client.(*redis.ClusterClient)
	if !ok {
		return scanNode(ctx, s.client, pattern)
	}

	var mu sync.Mutex
	var keys []string
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, master *redis.Client) error {
		nodeKeys, err := scanNode(ctx, master, pattern)
		if err != nil {
			return err
		}
		mu.Lock()
		keys = append(keys, nodeKeys...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// scanner is the subset of redis.UniversalClient / *redis.Client
// scanKeys needs to walk one node's keyspace.
type scanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

func scanNode(ctx context.Context, client scanner, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
