// Package paging turns the backend's forward-only cursor listings into
// offset-addressable pages. Every cursor observed while advancing is saved
// as a checkpoint (offset -> cursor), so later requests resume from the
// nearest checkpoint instead of replaying from the start.
package paging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"osbridge/internal/apperr"
	"osbridge/pkg/cache"
)

// Lister issues one backend listing call: at most maxItems entries starting
// at cursor. It reports the next cursor, whether more entries remain, and
// how many entries were returned.
type Lister func(ctx context.Context, cursor string, maxItems int64) (next string, truncated bool, returned int64, err error)

type CursorCache struct {
	store cache.Cache
	log   *zap.SugaredLogger
}

func NewCursorCache(store cache.Cache, log *zap.SugaredLogger) *CursorCache {
	return &CursorCache{store: store, log: log}
}

// Filtered listings checkpoint under a distinct namespace so they never
// collide with unfiltered ones.
func checkpointKey(scope, filterPrefix string, offset int64) string {
	if filterPrefix == "" {
		return fmt.Sprintf("ckpt:%s:%d", scope, offset)
	}
	return fmt.Sprintf("ckpt:%s:f:%s:%d", scope, filterPrefix, offset)
}

func (c *CursorCache) lookup(ctx context.Context, scope, filterPrefix string, offset int64) (string, bool) {
	raw, ok, err := c.store.Get(ctx, checkpointKey(scope, filterPrefix, offset))
	if err != nil {
		c.log.Warnw("checkpoint lookup failed", "scope", scope, "offset", offset, "err", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return string(raw), true
}

// Save records offset -> cursor. Best effort: a failed write only costs a
// future replay.
func (c *CursorCache) Save(ctx context.Context, scope, filterPrefix string, offset int64, cursor string) {
	if offset <= 0 || cursor == "" {
		return
	}
	if err := c.store.Set(ctx, checkpointKey(scope, filterPrefix, offset), []byte(cursor)); err != nil {
		c.log.Warnw("checkpoint save failed", "scope", scope, "offset", offset, "err", err)
	}
}

// Resolve returns the cursor addressing offset. Offset 0 needs no cursor.
// On a checkpoint hit no backend call is made; on a miss the listing is
// advanced from the nearest checkpoint at or below offset in strides of at
// most pageSize, checkpointing each position reached. If the backend runs
// out of items before offset, Resolve fails with OutOfRange.
func (c *CursorCache) Resolve(ctx context.Context, scope, filterPrefix string, offset, pageSize int64, list Lister) (string, error) {
	if offset < 0 || pageSize <= 0 {
		return "", apperr.Errorf(apperr.ClassBadRequest, "invalid offset %d / page size %d", offset, pageSize)
	}
	if offset == 0 {
		return "", nil
	}
	if cur, ok := c.lookup(ctx, scope, filterPrefix, offset); ok {
		return cur, nil
	}

	// Nearest checkpoint at or below offset. Checkpoints land on pageSize
	// strides, so probing descending multiples finds the closest one.
	var pos int64
	var cursor string
	for p := offset - offset%pageSize; p > 0; p -= pageSize {
		if p >= offset {
			continue
		}
		if cur, ok := c.lookup(ctx, scope, filterPrefix, p); ok {
			pos, cursor = p, cur
			break
		}
	}

	for pos < offset {
		step := pageSize
		if remaining := offset - pos; remaining < step {
			step = remaining
		}
		next, truncated, returned, err := list(ctx, cursor, step)
		if err != nil {
			return "", err
		}
		if returned == 0 {
			return "", apperr.Errorf(apperr.ClassOutOfRange, "offset %d exceeds available items (%d listed)", offset, pos)
		}
		pos += returned
		cursor = next
		c.Save(ctx, scope, filterPrefix, pos, cursor)
		if pos < offset && !truncated {
			return "", apperr.Errorf(apperr.ClassOutOfRange, "offset %d exceeds available items (%d listed)", offset, pos)
		}
	}
	return cursor, nil
}
