// Package checkpoint implements the durable key/value store that lets
// any stateless server replica resume any survey session.
package checkpoint

import (
	"context"
	"time"
)

// Metadata describes one checkpoint without its serialized payload —
// what List returns while walking a thread's index.
type Metadata struct {
	ThreadID     string    `json:"thread_id"`
	CheckpointID string    `json:"checkpoint_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record pairs a checkpoint's metadata with its opaque serialized state.
type Record struct {
	Metadata
	Blob []byte `json:"blob"`
}

// Store is the durable checkpoint interface. Implementations
// only need single-key get/set/delete/zadd/zrange semantics — no
// multi-key transactions are required.
type Store interface {
	// Put writes the already-encoded blob under
	// checkpoint:{thread}:{cid}, appends cid to the thread's time-ordered
	// index, and updates the thread's latest pointer. Returns the new
	// checkpoint id.
	Put(ctx context.Context, threadID string, blob []byte) (checkpointID string, err error)

	// GetLatest returns the most recent checkpoint's blob for a thread,
	// or (nil, false, nil) if none exists.
	GetLatest(ctx context.Context, threadID string) (blob []byte, ok bool, err error)

	// List walks a thread's checkpoint index in descending creation-time
	// order. before, if non-zero, bounds results to checkpoints created
	// strictly before it. limit <= 0 means unbounded.
	List(ctx context.Context, threadID string, before time.Time, limit int) ([]Metadata, error)

	// Purge deletes every checkpoint, index, and thread-summary key for
	// threadID, including orphaned checkpoint records with no index
	// entry. Returns the
	// number of keys removed.
	Purge(ctx context.Context, threadID string) (int, error)
}
