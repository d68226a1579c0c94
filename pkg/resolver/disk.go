package resolver

import "os"

// diskLeafExists reports whether path already exists on disk, making it a
// usable leaf input with no step producer required (spec.md §4.4 step 1).
func diskLeafExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
