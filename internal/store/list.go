package store

// List is a doubly ended sequence of byte strings backed by a plain Go
// slice. Push at either end, indexed overwrite and range reads are the
// only operations the command algebra needs; there is no internal locking —
// callers hold the single State Context lock for the duration of any
// mutation.
type List struct {
	elems []string
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// NewListFromElems builds a list from already-ordered elements, used when
// restoring a snapshot.
func NewListFromElems(elems []string) *List {
	return &List{elems: elems}
}

// Elems returns the list's elements in order, for serialization.
func (l *List) Elems() []string {
	if l == nil {
		return nil
	}
	return l.elems
}

// Len reports the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elems)
}

// PushBack appends to the tail.
func (l *List) PushBack(v string) {
	l.elems = append(l.elems, v)
}

// PushFront prepends to the head.
func (l *List) PushFront(v string) {
	l.elems = append(l.elems, "")
	copy(l.elems[1:], l.elems)
	l.elems[0] = v
}

// Set overwrites the element at index, returning false if index is out of
// range.
func (l *List) Set(index int, v string) bool {
	if index < 0 || index >= len(l.elems) {
		return false
	}
	l.elems[index] = v
	return true
}

// Range returns the elements between start and stop using the half-open
// slicing semantics of the original implementation: resolve negative
// indices modulo the current length, then treat stop as an exclusive
// bound once it has itself been resolved for negativity (but not when it
// was given as a large positive value, which clamps to length instead).
// This exact algorithm is what produces Range(k,1,1) == [] for a
// non-empty list: start resolves to 1, stop resolves to min(1,length)=1,
// and the half-open range [1,1) is empty.
func (l *List) Range(start, stop int) []string {
	length := len(l.elems)
	if length == 0 {
		return nil
	}
	if start >= length {
		return nil
	}

	effectiveStart := mod(start, length)
	var effectiveStop int
	if stop < 0 {
		effectiveStop = mod(stop, length) + 1
	} else if stop < length {
		effectiveStop = stop
	} else {
		effectiveStop = length
	}

	if effectiveStart > effectiveStop {
		return nil
	}
	out := make([]string, effectiveStop-effectiveStart)
	copy(out, l.elems[effectiveStart:effectiveStop])
	return out
}

// mod resolves a possibly negative index into [0, length) the way Rust's
// `(n + length) % length` does for values no more negative than
// -length; more deeply negative inputs clamp to 0 rather than panicking
// on the subsequent slice operation.
func mod(n, length int) int {
	if n < -length {
		return 0
	}
	n %= length
	if n < 0 {
		n += length
	}
	return n
}
