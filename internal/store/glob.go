package store

import (
	"regexp"
	"sync"
)

// MatchGlob implements the restricted glob grammar §4.4 describes: `*`
// matches one or more characters (never zero) when used positionally;
// everything else in the pattern is matched as an anchored literal. This
// is a pure function over (pattern, candidate), grounded on
// original_source's globs.rs, which substitutes `*` with the regex `.+`
// and anchors the whole pattern.
func MatchGlob(pattern, candidate string) bool {
	re, err := compileGlob(pattern)
	if err != nil {
		return pattern == candidate
	}
	return re.MatchString(candidate)
}

// globCache is read by concurrent readers holding only the State
// Context's shared read lock, so it needs its own synchronization
// independent of Dataset's (intentionally lock-free) state.
var globCache sync.Map // string -> *regexp.Regexp

func compileGlob(pattern string) (*regexp.Regexp, error) {
	if re, ok := globCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	segments := splitKeepingStars(pattern)
	quoted := make([]string, len(segments))
	for i, seg := range segments {
		if seg == "*" {
			quoted[i] = ".+"
		} else {
			quoted[i] = regexp.QuoteMeta(seg)
		}
	}
	re, err := regexp.Compile("^" + joinStrings(quoted) + "$")
	if err != nil {
		return nil, err
	}
	actual, _ := globCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// splitKeepingStars splits pattern into a sequence alternating literal
// runs and single "*" tokens.
func splitKeepingStars(pattern string) []string {
	var out []string
	var lit []byte
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			if len(lit) > 0 {
				out = append(out, string(lit))
				lit = nil
			}
			out = append(out, "*")
		} else {
			lit = append(lit, pattern[i])
		}
	}
	if len(lit) > 0 {
		out = append(out, string(lit))
	}
	return out
}

func joinStrings(ss []string) string {
	total := 0
	for _, s := range ss {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range ss {
		buf = append(buf, s...)
	}
	return string(buf)
}
