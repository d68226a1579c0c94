package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// CombineDigests folds an ordered list of input digests plus a stable
// serialization of bound variables into the single digest used as a
// substep's signature key, so any change to either its inputs or its
// environment invalidates the cached result (spec.md §4.2).
func CombineDigests(inputDigests []string, boundVars map[string]interface{}) string {
	h := sha256.New()
	for _, d := range inputDigests {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}

	keys := make([]string, 0, len(boundVars))
	for k := range boundVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, boundVars[k])
	}

	return hex.EncodeToString(h.Sum(nil))
}
