package permission

import "strings"

// Match reports whether a permission pattern grants perm. Patterns are
// colon-separated resource:action strings; a "*" segment matches any
// remaining suffix. Matching is anchored at both ends, so "org:read"
// never grants "org:update" and "users" never grants "users:read".
func Match(pattern, perm string) bool {
	if pattern == "" || perm == "" {
		return false
	}
	if pattern == perm {
		return true
	}

	patternSegs := strings.Split(pattern, ":")
	permSegs := strings.Split(perm, ":")

	for i, seg := range patternSegs {
		if seg == "*" {
			return true
		}
		if i >= len(permSegs) || permSegs[i] != seg {
			return false
		}
	}
	return len(patternSegs) == len(permSegs)
}

// MatchAny reports whether any pattern in the set grants perm. Exact
// and wildcard matches are equally sufficient; first match wins.
func MatchAny(patterns []string, perm string) bool {
	for _, pattern := range patterns {
		if Match(pattern, perm) {
			return true
		}
	}
	return false
}
