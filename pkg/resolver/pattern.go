package resolver

import "strings"

// matchTemplate matches a `{name}`-templated provides pattern against a
// literal string, mirroring pkg/substep's input-pattern matcher (kept as a
// separate copy rather than shared, since Resolver match targets are full
// paths while substep matches basenames, and the two are free to diverge on
// what they capture).
func matchTemplate(pattern, s string) (map[string]string, bool) {
	caps := map[string]string{}
	pi, si := 0, 0
	for pi < len(pattern) {
		if pattern[pi] == '{' {
			end := strings.IndexByte(pattern[pi:], '}')
			if end < 0 {
				return nil, false
			}
			name := pattern[pi+1 : pi+end]
			pi += end + 1
			nextLit := ""
			if pi < len(pattern) {
				nextEnd := strings.IndexByte(pattern[pi:], '{')
				if nextEnd < 0 {
					nextLit = pattern[pi:]
				} else {
					nextLit = pattern[pi : pi+nextEnd]
				}
			}
			var capEnd int
			if nextLit == "" {
				capEnd = len(s)
			} else {
				rel := strings.Index(s[si:], nextLit)
				if rel < 0 {
					return nil, false
				}
				capEnd = si + rel
			}
			if capEnd < si {
				return nil, false
			}
			caps[name] = s[si:capEnd]
			si = capEnd
			continue
		}
		if si >= len(s) || s[si] != pattern[pi] {
			return nil, false
		}
		pi++
		si++
	}
	if si != len(s) {
		return nil, false
	}
	return caps, true
}
