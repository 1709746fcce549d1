package durability

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gridhouse/internal/store"
)

// snapshotPattern matches "snapshot-<N>.data" filenames, grounded on
// original_source's allocate_snapshot_file/find_all regex scan.
var snapshotPattern = regexp.MustCompile(`^snapshot-(\d+)\.data$`)

// snapshotDTO is the self-describing on-disk shape: every field present,
// no lazily-omitted defaults, so restore never has to guess.
type snapshotDTO struct {
	Revision   uint64              `msgpack:"revision"`
	Strings    map[string]string   `msgpack:"strings"`
	Lists      map[string][]string `msgpack:"lists"`
	SortedSets map[string][]dtoScoredMember `msgpack:"sorted_sets"`
	TTLs       map[string]int64    `msgpack:"ttls"` // unix nanoseconds
}

type dtoScoredMember struct {
	Member string  `msgpack:"member"`
	Score  float64 `msgpack:"score"`
}

// SnapshotStore manages the ordinal-named snapshot files under dir.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore returns a store rooted at dir, creating dir if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("durability: create snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// highestOrdinal scans dir for snapshot-<N>.data files and returns the
// highest N found, or -1 if none exist. "Most recent" = highest ordinal;
// filesystem mtime is never consulted.
func (s *SnapshotStore) highestOrdinal() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return -1, err
	}
	best := int64(-1)
	for _, e := range entries {
		m := snapshotPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best, nil
}

func (s *SnapshotStore) pathFor(n int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("snapshot-%d.data", n))
}

// Save allocates the next ordinal and writes the full (Dataset + TTL
// index) pair in one self-describing binary serialization.
func (s *SnapshotStore) Save(ds *store.Dataset, ttl *store.TTLIndex, revision uint64) (string, error) {
	n, err := s.highestOrdinal()
	if err != nil {
		return "", fmt.Errorf("durability: scan snapshot dir: %w", err)
	}
	next := n + 1
	path := s.pathFor(next)

	dto := snapshotDTO{
		Revision:   revision,
		Strings:    ds.Strings,
		Lists:      make(map[string][]string, len(ds.Lists)),
		SortedSets: make(map[string][]dtoScoredMember, len(ds.SortedSets)),
		TTLs:       make(map[string]int64, len(ttl.Entries())),
	}
	for k, l := range ds.Lists {
		dto.Lists[k] = l.Elems()
	}
	for k, zs := range ds.SortedSets {
		members := zs.Members()
		out := make([]dtoScoredMember, len(members))
		for i, m := range members {
			out[i] = dtoScoredMember{Member: m.Member, Score: m.Score}
		}
		dto.SortedSets[k] = out
	}
	for k, at := range ttl.Entries() {
		dto.TTLs[k] = at.UnixNano()
	}

	raw, err := msgpack.Marshal(dto)
	if err != nil {
		return "", fmt.Errorf("durability: encode snapshot: %w", err)
	}

	// O_EXCL guards against ordinal collisions exactly like the
	// original's create_new: the caller must already hold the State
	// Context's exclusive lock when saving.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("durability: create snapshot file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return "", fmt.Errorf("durability: write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("durability: sync snapshot: %w", err)
	}
	return path, nil
}

// RestoreMostRecent reads the highest-ordinal snapshot file, if any, and
// returns the reconstructed Dataset, TTL index, and the revision it was
// taken at. ok is false (with no error) when no snapshot exists yet.
func (s *SnapshotStore) RestoreMostRecent() (ds *store.Dataset, ttl *store.TTLIndex, revision uint64, ok bool, err error) {
	n, err := s.highestOrdinal()
	if err != nil {
		return nil, nil, 0, false, fmt.Errorf("durability: scan snapshot dir: %w", err)
	}
	if n < 0 {
		return nil, nil, 0, false, nil
	}

	raw, err := os.ReadFile(s.pathFor(n))
	if err != nil {
		return nil, nil, 0, false, fmt.Errorf("durability: read snapshot: %w", err)
	}
	var dto snapshotDTO
	if err := msgpack.Unmarshal(raw, &dto); err != nil {
		return nil, nil, 0, false, fmt.Errorf("durability: decode snapshot: %w", err)
	}

	ds = store.NewDataset()
	for k, v := range dto.Strings {
		ds.Strings[k] = v
	}
	for k, elems := range dto.Lists {
		ds.Lists[k] = store.NewListFromElems(elems)
	}
	for k, members := range dto.SortedSets {
		scored := make([]store.ScoredMember, len(members))
		for i, m := range members {
			scored[i] = store.ScoredMember{Member: m.Member, Score: m.Score}
		}
		ds.SortedSets[k] = store.NewOrderedScoresFromMembers(scored)
	}

	ttlEntries := make(map[string]time.Time, len(dto.TTLs))
	for k, ns := range dto.TTLs {
		ttlEntries[k] = time.Unix(0, ns)
	}
	ttl = store.NewTTLIndexFromEntries(ttlEntries)

	return ds, ttl, dto.Revision, true, nil
}
