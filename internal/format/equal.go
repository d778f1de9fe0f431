package format

import "sort"

// StringSlicesEqual reports whether a and b hold the same strings in the
// same order.
func StringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StringSetsEqual reports whether a and b hold the same strings with the
// same multiplicity, ignoring order. Neither input is modified.
func StringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	return StringSlicesEqual(sa, sb)
}
