package store

import "strings"

// Dataset is the three independent keyed containers sharing one key
// namespace (spec.md §3). It carries no internal synchronization: the
// single State Context lock (internal/state) is the only thing that may
// touch a Dataset concurrently.
type Dataset struct {
	Strings    map[string]string
	Lists      map[string]*List
	SortedSets map[string]*OrderedScores
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Strings:    make(map[string]string),
		Lists:      make(map[string]*List),
		SortedSets: make(map[string]*OrderedScores),
	}
}

// KeyType reports the type name of key's binding, or "" if absent.
func (d *Dataset) KeyType(key string) (string, bool) {
	if _, ok := d.Strings[key]; ok {
		return "string", true
	}
	if _, ok := d.Lists[key]; ok {
		return "list", true
	}
	if _, ok := d.SortedSets[key]; ok {
		return "zset", true
	}
	return "", false
}

// Exists reports whether key is bound in any typed map.
func (d *Dataset) Exists(key string) bool {
	_, ok := d.KeyType(key)
	return ok
}

// Keys returns every bound key across all three typed maps, in no
// particular order (callers needing stable iteration, e.g. Scan, sort it
// themselves).
func (d *Dataset) Keys() []string {
	out := make([]string, 0, len(d.Strings)+len(d.Lists)+len(d.SortedSets))
	for k := range d.Strings {
		out = append(out, k)
	}
	for k := range d.Lists {
		out = append(out, k)
	}
	for k := range d.SortedSets {
		out = append(out, k)
	}
	return out
}

// Expunge removes key from every typed map. A key is not strictly typed
// for expunging purposes: the TTL index calls this without knowing which
// map (if any) currently holds the key, per spec.md §9's "TTL expunge
// coupling" design note.
func (d *Dataset) Expunge(key string) {
	delete(d.Strings, key)
	delete(d.Lists, key)
	delete(d.SortedSets, key)
}

// ListOrNil returns the list at key, creating nothing.
func (d *Dataset) ListOrNil(key string) *List {
	return d.Lists[key]
}

// ListFor returns the list at key, creating and inserting it if
// onlyIfExists is false and it is absent. Returns nil if onlyIfExists is
// true and the key does not already exist.
func (d *Dataset) ListFor(key string, onlyIfExists bool) *List {
	l, ok := d.Lists[key]
	if ok {
		return l
	}
	if onlyIfExists {
		return nil
	}
	l = NewList()
	d.Lists[key] = l
	return l
}

// SortedSetOrNil returns the sorted set at key, creating nothing.
func (d *Dataset) SortedSetOrNil(key string) *OrderedScores {
	return d.SortedSets[key]
}

// SortedSetFor returns the sorted set at key, creating and inserting it
// if absent.
func (d *Dataset) SortedSetFor(key string) *OrderedScores {
	s, ok := d.SortedSets[key]
	if ok {
		return s
	}
	s = NewOrderedScores()
	d.SortedSets[key] = s
	return s
}

// GetString implements the documented quirk in spec.md §4.3: GET against
// a list key does not error, it returns a comma-joined prefix of up to
// five list elements.
func (d *Dataset) GetString(key string) (string, bool) {
	if v, ok := d.Strings[key]; ok {
		return v, true
	}
	if l, ok := d.Lists[key]; ok {
		n := l.Len()
		if n > 5 {
			n = 5
		}
		return strings.Join(l.elems[:n], ","), true
	}
	return "", false
}
