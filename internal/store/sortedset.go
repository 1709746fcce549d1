package store

import (
	"math"
	"sort"
)

// scoreCompare imposes a total order on float64 so NaN sorts
// deterministically above all non-NaN values, matching the f64::total_cmp
// ordering the sorted-set invariant in spec.md requires.
func scoreCompare(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type scoreBucket struct {
	score   float64
	members []string // kept lexicographically sorted, mirroring a BTreeSet<String>
}

// OrderedScores maintains the two mutually consistent indices a sorted
// set needs: member -> score, and score -> ordered set of members at that
// score. Both indices are kept in lockstep on every mutation (no lazy
// rebuild): member_to_score is a Go map, score_to_members is a slice of
// buckets kept sorted by score via sort.Search, generalizing the
// teacher's sort.Slice-based OptimizedSortedSet to incremental
// maintenance instead of a dirty-flag lazy rebuild.
type OrderedScores struct {
	memberScore map[string]float64
	buckets     []scoreBucket
}

// NewOrderedScores returns an empty sorted set.
func NewOrderedScores() *OrderedScores {
	return &OrderedScores{memberScore: make(map[string]float64)}
}

// NewOrderedScoresFromMembers rebuilds a sorted set from a flat member
// list, used when restoring a snapshot.
func NewOrderedScoresFromMembers(members []ScoredMember) *OrderedScores {
	o := NewOrderedScores()
	for _, m := range members {
		o.put(m.Member, m.Score)
	}
	return o
}

// Members returns every (member,score) pair, for serialization. Order is
// unspecified.
func (o *OrderedScores) Members() []ScoredMember {
	out := make([]ScoredMember, 0, len(o.memberScore))
	for m, s := range o.memberScore {
		out = append(out, ScoredMember{Member: m, Score: s})
	}
	return out
}

// Len returns the number of distinct members.
func (o *OrderedScores) Len() int {
	if o == nil {
		return 0
	}
	return len(o.memberScore)
}

// Score returns the member's score, if present.
func (o *OrderedScores) Score(member string) (float64, bool) {
	s, ok := o.memberScore[member]
	return s, ok
}

func (o *OrderedScores) findBucket(score float64) (int, bool) {
	i := sort.Search(len(o.buckets), func(i int) bool {
		return scoreCompare(o.buckets[i].score, score) >= 0
	})
	if i < len(o.buckets) && scoreCompare(o.buckets[i].score, score) == 0 {
		return i, true
	}
	return i, false
}

func insertSorted(members []string, member string) []string {
	i := sort.SearchStrings(members, member)
	if i < len(members) && members[i] == member {
		return members
	}
	members = append(members, "")
	copy(members[i+1:], members[i:])
	members[i] = member
	return members
}

func removeSorted(members []string, member string) []string {
	i := sort.SearchStrings(members, member)
	if i < len(members) && members[i] == member {
		members = append(members[:i], members[i+1:]...)
	}
	return members
}

func (o *OrderedScores) removeFromBucket(score float64, member string) {
	idx, ok := o.findBucket(score)
	if !ok {
		return
	}
	b := &o.buckets[idx]
	b.members = removeSorted(b.members, member)
	if len(b.members) == 0 {
		o.buckets = append(o.buckets[:idx], o.buckets[idx+1:]...)
	}
}

func (o *OrderedScores) insertIntoBucket(score float64, member string) {
	idx, ok := o.findBucket(score)
	if ok {
		o.buckets[idx].members = insertSorted(o.buckets[idx].members, member)
		return
	}
	o.buckets = append(o.buckets, scoreBucket{})
	copy(o.buckets[idx+1:], o.buckets[idx:])
	o.buckets[idx] = scoreBucket{score: score, members: []string{member}}
}

// put unconditionally sets member's score, fixing up both indices.
// Reports whether the member was newly added and whether its score
// changed (added members always report score-changed too).
func (o *OrderedScores) put(member string, score float64) (added, changed bool) {
	old, exists := o.memberScore[member]
	if exists {
		if scoreCompare(old, score) == 0 {
			return false, false
		}
		o.removeFromBucket(old, member)
	}
	o.memberScore[member] = score
	o.insertIntoBucket(score, member)
	return !exists, true
}

// AddOnly is the NX/XX existence gate.
type AddOnly int

const (
	AddOnlyNone AddOnly = iota
	AddOnlyNew          // NX
	AddOnlyExisting     // XX
)

// AddWhen is the GT/LT comparison gate.
type AddWhen int

const (
	AddWhenNone AddWhen = iota
	AddWhenGreater
	AddWhenLess
)

// AddOptions is the parsed ZADD option set (§4.2's "Sorted-set Add
// options"). Diverged marks a disallowed combination that must surface
// as an error response rather than be silently applied.
type AddOptions struct {
	Only     AddOnly
	When     AddWhen
	Changed  bool // CH: report count of changed members, not just added
	Diverged bool
	Reason   string
}

// ParseAddOption maps a single option token to the partial AddOptions it
// contributes, or false if word is not a recognized option keyword.
// Matching is case-insensitive, per spec.md §4.2.
func ParseAddOption(word string) (AddOptions, bool) {
	switch upper(word) {
	case "NX":
		return AddOptions{Only: AddOnlyNew}, true
	case "XX":
		return AddOptions{Only: AddOnlyExisting}, true
	case "GT":
		return AddOptions{When: AddWhenGreater}, true
	case "LT":
		return AddOptions{When: AddWhenLess}, true
	case "CH":
		return AddOptions{Changed: true}, true
	default:
		return AddOptions{}, false
	}
}

// CombineAddOptions folds two parsed options together using the
// documented combination table: XX+GT and XX+LT are the only allowed
// cross-policy combinations; anything else that mixes two non-default
// policies diverges. Default (no Only/When set yet) acts as an identity
// element so a lone "XX", a lone "GT", or a lone "CH" all parse cleanly.
func CombineAddOptions(acc, next AddOptions) AddOptions {
	changed := acc.Changed || next.Changed
	if acc.Diverged {
		acc.Changed = changed
		return acc
	}
	if next.Diverged {
		next.Changed = changed
		return next
	}

	switch {
	case acc.Only == AddOnlyNone && acc.When == AddWhenNone:
		next.Changed = changed
		return next
	case next.Only == AddOnlyNone && next.When == AddWhenNone:
		acc.Changed = changed
		return acc
	case acc.Only == AddOnlyExisting && acc.When == AddWhenNone && next.Only == AddOnlyNone && next.When != AddWhenNone:
		return AddOptions{Only: AddOnlyExisting, When: next.When, Changed: changed}
	case next.Only == AddOnlyExisting && next.When == AddWhenNone && acc.Only == AddOnlyNone && acc.When != AddWhenNone:
		return AddOptions{Only: AddOnlyExisting, When: acc.When, Changed: changed}
	default:
		return AddOptions{Diverged: true, Reason: "bad ZADD option combination", Changed: changed}
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// shouldApply decides, for a single (member,score) entry under options,
// whether the new score should be written.
func shouldApply(opts AddOptions, exists bool, existing, next float64) bool {
	switch {
	case opts.Only == AddOnlyNew:
		return !exists
	case opts.Only == AddOnlyExisting && opts.When == AddWhenNone:
		return exists
	case opts.Only == AddOnlyExisting && opts.When == AddWhenGreater:
		return exists && scoreCompare(next, existing) > 0
	case opts.Only == AddOnlyExisting && opts.When == AddWhenLess:
		return exists && scoreCompare(next, existing) < 0
	case opts.When == AddWhenGreater:
		return !exists || scoreCompare(next, existing) > 0
	case opts.When == AddWhenLess:
		return !exists || scoreCompare(next, existing) < 0
	default:
		return true
	}
}

// ScoreEntry pairs a score with a member and its rank, per §4.3's
// range_by_rank/range_by_score contract.
type ScoreEntry struct {
	Rank   int
	Score  float64
	Member string
}

func (o *OrderedScores) flatten() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(o.memberScore))
	rank := 0
	for _, b := range o.buckets {
		for _, m := range b.members {
			out = append(out, ScoreEntry{Rank: rank, Score: b.score, Member: m})
			rank++
		}
	}
	return out
}

// Add applies entries under options, returning the count the ZADD
// response should carry: without CH, the number of newly added members;
// with CH, newly added plus changed.
func (o *OrderedScores) Add(entries []ScoredMember, opts AddOptions) (count int64, err error) {
	if opts.Diverged {
		return 0, ErrDiverged(opts.Reason)
	}
	for _, e := range entries {
		existing, exists := o.memberScore[e.Member]
		if !shouldApply(opts, exists, existing, e.Score) {
			continue
		}
		added, changed := o.put(e.Member, e.Score)
		if added {
			count++
		} else if opts.Changed && changed {
			count++
		}
	}
	return count, nil
}

// ScoredMember is a (member,score) pair as supplied to ZADD.
type ScoredMember struct {
	Member string
	Score  float64
}

// RangeByRank returns members in ascending score order (ties broken
// lexicographically) between start and stop inclusive, zero-based.
// Negative endpoints resolve relative to the end the way list ranges do;
// out-of-range endpoints clamp.
func (o *OrderedScores) RangeByRank(start, stop int) []ScoreEntry {
	all := o.flatten()
	length := len(all)
	if length == 0 {
		return nil
	}
	if start < 0 {
		start = mod(start, length)
	}
	if stop < 0 {
		stop = mod(stop, length)
	}
	if start >= length {
		return nil
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop {
		return nil
	}
	out := make([]ScoreEntry, stop-start+1)
	copy(out, all[start:stop+1])
	return out
}

// RangeByScore returns members with score in [lo, hi], inclusive on both
// sides, using the same total ordering as storage.
func (o *OrderedScores) RangeByScore(lo, hi float64) []ScoreEntry {
	all := o.flatten()
	out := make([]ScoreEntry, 0)
	for _, e := range all {
		if scoreCompare(e.Score, lo) >= 0 && scoreCompare(e.Score, hi) <= 0 {
			out = append(out, e)
		}
	}
	return out
}

// MemberStats returns the member's rank and score, if present.
func (o *OrderedScores) MemberStats(member string) (ScoreEntry, bool) {
	score, ok := o.memberScore[member]
	if !ok {
		return ScoreEntry{}, false
	}
	for _, e := range o.flatten() {
		if e.Member == member {
			return e, true
		}
	}
	// memberScore and buckets are kept in lockstep by put/removeFromBucket;
	// reaching here means that invariant broke.
	panic("ordered scores: member_to_score <=> score_to_members invariant broken for " + member + " at score " + formatFloat(score))
}
