// Package state implements the State Context (C7): the single aggregate
// of Dataset, TTL index, transaction log and snapshot store guarded by
// one sync.RWMutex, per spec.md §4.6.
package state

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gridhouse/internal/cmd"
	"gridhouse/internal/durability"
	"gridhouse/internal/logger"
	"gridhouse/internal/resp"
	"gridhouse/internal/store"
)

// Clock abstracts wall-clock access so tests can supply a fixed or
// stepped time source instead of time.Now.
type Clock func() time.Time

// Context is the single point of mutual exclusion for the whole server.
// Every command, read or write, goes through ForReading or
// ApplyTransaction; there is exactly one mutex in the entire data path.
type Context struct {
	mu  sync.RWMutex
	ds  *store.Dataset
	ttl *store.TTLIndex

	log       *durability.Log
	logPath   string
	snapshots *durability.SnapshotStore
	revision  uint64

	now Clock
}

// Open wires a Context to a data directory: dataDir/transactions.log for
// the write-ahead log and dataDir/snapshot-<N>.data for snapshots. It
// does not restore state; call Restore for that.
func Open(dataDir string) (*Context, error) {
	logPath := filepath.Join(dataDir, "transactions.log")
	l, err := durability.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("state: open transaction log: %w", err)
	}
	snaps, err := durability.NewSnapshotStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("state: open snapshot store: %w", err)
	}
	return &Context{
		ds:        store.NewDataset(),
		ttl:       store.NewTTLIndex(),
		log:       l,
		logPath:   logPath,
		snapshots: snaps,
		now:       time.Now,
	}, nil
}

// Close flushes and closes the underlying log file.
func (c *Context) Close() error {
	return c.log.Close()
}

// Restore runs the startup recovery procedure spec.md §4.5 describes:
// load the most recent snapshot as a baseline (revision 0 with an empty
// dataset if none exists), then replay every logged transaction whose
// revision is strictly greater than the baseline, classifying each and
// re-applying it through dispatchReplay, which has the same effect on the
// dataset as the live write handlers. A replayed EXPIRE is armed relative
// to the clock at replay time, not the instant it was logged. The
// log's replaying flag is held for the duration so replay never
// re-appends what it is reading back.
func (c *Context) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds, ttl, rev, ok, err := c.snapshots.RestoreMostRecent()
	if err != nil {
		return fmt.Errorf("state: restore snapshot: %w", err)
	}
	if ok {
		c.ds, c.ttl, c.revision = ds, ttl, rev
		logger.Infof("state: restored snapshot at revision %d", rev)
	}

	c.log.SetReplaying(true)
	defer c.log.SetReplaying(false)

	baseline := c.revision
	replayed := 0
	err = durability.ReplaySince(c.logPath, baseline+1, func(entry durability.LogEntry) error {
		command := cmd.Classify(entry.Command)
		c.dispatchReplay(command)
		c.revision = entry.Revision
		replayed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: replay log: %w", err)
	}
	logger.Infof("state: replayed %d transactions, revision now %d", replayed, c.revision)
	return nil
}

// dispatchReplay re-applies a logged write command to the dataset
// without going through ApplyTransaction's locking or logging (the
// caller already holds the exclusive lock and the log is silenced).
func (c *Context) dispatchReplay(command cmd.Command) {
	switch v := command.(type) {
	case cmd.StringSet:
		delete(c.ds.Lists, v.Key)
		delete(c.ds.SortedSets, v.Key)
		c.ds.Strings[v.Key] = v.Value
		c.ttl.DropTTL(v.Key)
	case cmd.ListAppend:
		if t, ok := c.ds.KeyType(v.Key); ok && t != "list" {
			return
		}
		l := c.ds.ListFor(v.Key, v.OnlyIfExists)
		if l != nil {
			for _, item := range v.Items {
				l.PushBack(item)
			}
		}
	case cmd.ListPrepend:
		if t, ok := c.ds.KeyType(v.Key); ok && t != "list" {
			return
		}
		l := c.ds.ListFor(v.Key, v.OnlyIfExists)
		if l != nil {
			for _, item := range v.Items {
				l.PushFront(item)
			}
		}
	case cmd.ListSet:
		if l := c.ds.ListOrNil(v.Key); l != nil {
			l.Set(v.Index, v.Value)
		}
	case cmd.ZAdd:
		if t, ok := c.ds.KeyType(v.Key); ok && t != "zset" {
			return
		}
		zs := c.ds.SortedSetFor(v.Key)
		_, _ = zs.Add(v.Entries, v.Options)
	case cmd.Expire:
		if c.ds.Exists(v.Key) {
			c.ttl.RegisterTTL(v.Key, c.now(), time.Duration(v.Seconds)*time.Second)
		}
	case cmd.BgSave:
		// snapshotting itself is not replayed; the snapshot that was
		// on disk at that revision is already the baseline.
	}
}

// ForReading runs fn under the shared lock, after lazily expunging any
// keys whose TTL has passed. Multiple readers run concurrently.
func (c *Context) ForReading(fn func(ds *store.Dataset, ttl *store.TTLIndex) resp.Message) resp.Message {
	c.mu.Lock()
	c.expireDue()
	c.mu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.ds, c.ttl)
}

// ApplyTransaction runs body under the exclusive lock, then — unless ctx
// carries a non-write command passed in by mistake — captures the
// post-mutation revision, appends the verbatim command to the
// transaction log, and only then releases the lock. This ordering is
// the durability guarantee spec.md §5 requires: by the time the lock is
// released the log entry has been flushed to the operating system (the
// append does not fsync).
func (c *Context) ApplyTransaction(ctx cmd.Context, body func(ds *store.Dataset, ttl *store.TTLIndex) resp.Message) (resp.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireDue()
	result := body(c.ds, c.ttl)
	if !cmd.IsWrite(ctx.Command) {
		return result, nil
	}

	c.revision++
	words, ok := ctx.Message.Strings()
	if !ok {
		return result, fmt.Errorf("state: write command message was not a bulk array")
	}
	if err := c.log.Append(c.revision, c.now(), words); err != nil {
		return result, err
	}
	return result, nil
}

// expireDue lazily expunges every key whose TTL has passed as of now.
// Called under the exclusive lock at the start of every write
// transaction and by ForReading before it takes the shared lock.
func (c *Context) expireDue() {
	c.ttl.ExpungeExpired(c.now(), func(key string) {
		c.ds.Expunge(key)
	})
}

// Revision returns the current applied revision.
func (c *Context) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Snapshot writes a full-state snapshot at the current revision. It takes
// no lock itself: the caller must already hold the exclusive lock (BGSAVE
// runs inside ApplyTransaction), so the on-disk image is self-consistent
// with a single revision number.
func (c *Context) Snapshot() (string, error) {
	return c.snapshots.Save(c.ds, c.ttl, c.revision)
}

// WithClock overrides the wall-clock source, for deterministic tests.
func (c *Context) WithClock(clock Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = clock
}
